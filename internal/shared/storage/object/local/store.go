package local

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/util"
)

// Store implements object.Store on the local filesystem, rooted at baseDir.
// Stored files get a random name to avoid collisions; the original name
// survives only in the catalog.
type Store struct {
	baseDir string
}

// New creates a local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Backend returns the local backend tag.
func (s *Store) Backend() string { return object.BackendLocal }

// Upload writes the stream under uploads/{collectionUID}/ with a random
// filename that keeps the original extension.
func (s *Store) Upload(ctx context.Context, coll object.CollectionRef, filename string, r io.ReadSeeker, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	if _, err := util.SanitizeFileName(filename); err != nil {
		return object.UploadDescriptor{}, object.NewValidationError("invalid file name %q", filename)
	}
	if err := ctx.Err(); err != nil {
		return object.UploadDescriptor{}, err
	}

	storedName := uuid.NewString() + util.FileExt(filename)
	key := path.Join("uploads", coll.UniqueID, storedName)

	size, contentType, err := s.write(key, r)
	if err != nil {
		return object.UploadDescriptor{}, err
	}
	if size == 0 {
		_, _ = s.Delete(ctx, key)
		return object.UploadDescriptor{}, object.NewValidationError("cannot upload empty file")
	}
	if progress != nil {
		progress(size, size)
	}

	return object.UploadDescriptor{
		Key:         key,
		Backend:     object.BackendLocal,
		SizeBytes:   size,
		ContentType: contentType,
		Method:      object.MethodLocal,
	}, nil
}

// UploadKey writes the stream at an explicit key, used for derivative images.
func (s *Store) UploadKey(ctx context.Context, key, contentType string, r io.ReadSeeker) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size, _, err := s.write(key, r)
	_ = contentType
	return size, err
}

// Fetch opens a stored object for reading.
func (s *Store) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes the object; a missing key is (false, nil).
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove file: %w", err)
	}
	return true, nil
}

// URLFor returns the app-served path for the object. Local files are exposed
// by the HTTP layer under /files/, so the TTL is ignored.
func (s *Store) URLFor(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	return "/files/" + key, nil
}

// BatchUpload stores the items one at a time. Disk writes are not worth
// fanning out; progress still reports per-item completion.
func (s *Store) BatchUpload(ctx context.Context, coll object.CollectionRef, items []object.UploadItem, progress object.ProgressFunc) []object.UploadOutcome {
	outcomes := make([]object.UploadOutcome, 0, len(items))
	total := int64(len(items))
	for i, item := range items {
		desc, err := s.Upload(ctx, coll, item.Filename, item.Body, nil)
		outcomes = append(outcomes, object.UploadOutcome{
			Filename:   item.Filename,
			Descriptor: desc,
			Err:        err,
		})
		if progress != nil {
			progress(int64(i+1), total)
		}
	}
	return outcomes
}

func (s *Store) write(key string, r io.Reader) (int64, string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, "", fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return 0, "", fmt.Errorf("read sniff: %w", readErr)
	}
	contentType := http.DetectContentType(sniff[:n])

	size := int64(0)
	if n > 0 {
		if _, err := f.Write(sniff[:n]); err != nil {
			return 0, "", fmt.Errorf("write sniff: %w", err)
		}
		size += int64(n)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, "", fmt.Errorf("write body: %w", err)
	}
	return size + written, contentType, nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", object.NewValidationError("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.Store = (*Store)(nil)
