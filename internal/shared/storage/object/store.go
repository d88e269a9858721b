package object

import (
	"context"
	"io"
	"time"
)

// Backend tags recorded on catalog rows and upload descriptors.
const (
	BackendR2    = "r2"
	BackendLocal = "local"
)

// Upload transfer methods reported in UploadDescriptor.Method.
const (
	MethodSinglePart = "single_part"
	MethodMultipart  = "multipart"
	MethodLocal      = "local"
)

// ProgressFunc observes transfer progress. Depending on the operation the
// pair is either (bytesTransferred, bytesTotal) for a single object or
// (itemsCompleted, itemsTotal) for a batch. Implementations must tolerate
// concurrent invocation.
type ProgressFunc func(done, total int64)

// CollectionRef is the namespacing context supplied by the surrounding
// application. UniqueID partitions storage keys so objects of different
// collections never collide.
type CollectionRef struct {
	ID       int64
	UniqueID string
}

// UploadDescriptor is the ephemeral result of one upload. Callers consume it
// immediately to build a catalog record; it is never persisted itself.
type UploadDescriptor struct {
	Key         string
	Backend     string
	SizeBytes   int64
	ContentType string
	Method      string
	PartsCount  int
	PartSize    int64
}

// UploadItem is one entry of a batch upload request.
type UploadItem struct {
	Filename string
	// Key overrides the store's key derivation when non-empty.
	Key      string
	Body     io.ReadSeeker
	Metadata map[string]string
}

// UploadOutcome is the per-item result of a batch upload. Err is nil on
// success. Outcomes are reported in completion order, not submission order;
// correlate by Filename.
type UploadOutcome struct {
	Filename   string
	Descriptor UploadDescriptor
	Err        error
}

// Store is the backend contract for saving and retrieving binary objects.
// One implementation is selected at startup from configuration and injected
// into every component that needs storage access.
type Store interface {
	// Backend returns the backend tag for catalog records.
	Backend() string

	// Upload persists r under a key derived from the collection and file
	// name, and returns a descriptor of what was written.
	Upload(ctx context.Context, coll CollectionRef, filename string, r io.ReadSeeker, progress ProgressFunc) (UploadDescriptor, error)

	// UploadKey persists r at an explicit storage key. Used by the variant
	// pipeline which derives keys from the original's location.
	UploadKey(ctx context.Context, key, contentType string, r io.ReadSeeker) (int64, error)

	// Fetch opens the object stored at key for reading.
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. A missing object returns (false, nil),
	// not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// URLFor returns a client-accessible URL for the object: a presigned URL
	// for remote backends, an internal serving route for the local one.
	URLFor(ctx context.Context, key string, ttl time.Duration) (string, error)

	// BatchUpload uploads every item, isolating per-item failures, and calls
	// progress with (itemsCompleted, itemsTotal) after each item resolves.
	BatchUpload(ctx context.Context, coll CollectionRef, items []UploadItem, progress ProgressFunc) []UploadOutcome
}
