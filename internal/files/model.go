package files

import (
	"strings"
	"time"
)

// File is one catalog record for a stored object. StoragePath is the backend
// key of the original upload; ThumbPath and MediumPath point at generated
// derivatives and stay empty until the variant pipeline fills them in.
type File struct {
	ID               string
	CollectionID     int64
	Filename         string
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	StoragePath      string
	StorageBackend   string
	ThumbPath        string
	MediumPath       string
	UploadComplete   bool
	CreatedAt        time.Time
}

// IsImage reports whether the file is eligible for variant generation.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// VariantUpdate carries the derivative paths recorded after generation.
// Empty fields leave the stored value untouched.
type VariantUpdate struct {
	FileID     string
	ThumbPath  string
	MediumPath string
}
