package r2

import (
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"
	"time"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/util"
)

// allowedExtensions is the configurable image whitelist; anything outside it
// is rejected before any network interaction.
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".tiff": {},
	".bmp":  {},
	".gif":  {},
}

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/tiff": {},
	"image/bmp":  {},
	"image/gif":  {},
}

// FileInfo is the detected size and type of a validated upload.
type FileInfo struct {
	Filename    string
	Ext         string
	SizeBytes   int64
	ContentType string
}

// ValidateFile checks name against the extension/MIME whitelist and measures
// r by seeking. The reader is left positioned at the start. Empty files and
// files above the 5 GiB backend ceiling are rejected.
func (c *Client) ValidateFile(r io.ReadSeeker, name string) (FileInfo, error) {
	ext := util.FileExt(name)
	if _, ok := allowedExtensions[ext]; !ok {
		return FileInfo{}, object.NewValidationError(
			"unsupported file type %q, allowed: %s", ext, allowedExtensionList())
	}

	size, err := measure(r)
	if err != nil {
		return FileInfo{}, fmt.Errorf("measure file: %w", err)
	}
	if size == 0 {
		return FileInfo{}, object.NewValidationError("cannot upload empty file")
	}
	if size > maxFileSize {
		return FileInfo{}, object.NewValidationError(
			"file too large: %d bytes, maximum %d bytes", size, int64(maxFileSize))
	}

	contentType := mime.TypeByExtension(ext)
	if contentType != "" {
		if base, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = base
		}
		if _, ok := allowedMIMETypes[contentType]; !ok {
			return FileInfo{}, object.NewValidationError("invalid MIME type: %s", contentType)
		}
	} else {
		contentType = "application/octet-stream"
	}

	return FileInfo{
		Filename:    name,
		Ext:         ext,
		SizeBytes:   size,
		ContentType: contentType,
	}, nil
}

func measure(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// generateKey derives a date-partitioned storage key for uploads that do not
// carry an explicit key.
func generateKey(filename string) (string, error) {
	safe, err := util.SanitizeFileName(filename)
	if err != nil {
		return "", object.NewValidationError("invalid file name %q", filename)
	}
	now := time.Now().UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), safe), nil
}

// calculatePartSize picks a whole-MiB part size within the backend's
// [5 MiB, 5 GiB] bounds such that the part count stays under the 10000 cap.
func calculatePartSize(fileSize int64) int64 {
	if fileSize <= minPartSize {
		return minPartSize
	}

	targetParts := fileSize / minPartSize
	if targetParts > maxParts {
		targetParts = maxParts
	}

	partSize := fileSize / targetParts
	if partSize < minPartSize {
		partSize = minPartSize
	}
	partSize = partSize >> 20 << 20
	if partSize > maxPartSize {
		partSize = maxPartSize
	}
	return partSize
}
