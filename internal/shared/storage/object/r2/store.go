package r2

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/util"
)

// Store adapts Client to the object.Store contract. Keys are namespaced per
// collection as collections/{uniqueId}/{filename}.
type Store struct {
	client *Client
}

// NewStore wraps an initialized client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Backend returns the remote backend tag.
func (s *Store) Backend() string { return object.BackendR2 }

// Upload persists the stream under the collection's namespace with tracking
// metadata attached.
func (s *Store) Upload(ctx context.Context, coll object.CollectionRef, filename string, r io.ReadSeeker, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	key, err := collectionKey(coll, filename)
	if err != nil {
		return object.UploadDescriptor{}, err
	}
	return s.client.UploadSingle(ctx, r, filename, key, uploadMetadata(coll, filename), progress)
}

// UploadKey writes the stream at an explicit key, used for derivative images.
func (s *Store) UploadKey(ctx context.Context, key, contentType string, r io.ReadSeeker) (int64, error) {
	_ = contentType // detected from the key's extension during validation
	desc, err := s.client.UploadSingle(ctx, r, "", key, nil, nil)
	if err != nil {
		return 0, err
	}
	return desc.SizeBytes, nil
}

// Fetch opens the stored object for reading.
func (s *Store) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.Download(ctx, key)
}

// Delete removes the object; a missing key is (false, nil).
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	return s.client.Delete(ctx, key)
}

// URLFor returns a presigned GET URL with the given TTL.
func (s *Store) URLFor(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.client.PresignedURL(ctx, key, ttl, "GET")
}

// BatchUpload uploads the items concurrently through UploadMany, deriving a
// collection-namespaced key and metadata per item.
func (s *Store) BatchUpload(ctx context.Context, coll object.CollectionRef, items []object.UploadItem, progress object.ProgressFunc) []object.UploadOutcome {
	prepared := make([]object.UploadItem, len(items))
	prepErr := make([]error, len(items))
	for i, item := range items {
		prepared[i] = item
		if item.Key == "" {
			key, err := collectionKey(coll, item.Filename)
			if err != nil {
				prepErr[i] = err
				continue
			}
			prepared[i].Key = key
		}
		if prepared[i].Metadata == nil {
			prepared[i].Metadata = uploadMetadata(coll, item.Filename)
		}
	}

	uploadable := make([]object.UploadItem, 0, len(prepared))
	for i, item := range prepared {
		if prepErr[i] == nil {
			uploadable = append(uploadable, item)
		}
	}

	// Prep failures still count as resolved items: progress runs against the
	// full submission, ticking once per failed item before the uploads start.
	total := int64(len(items))
	prepFailed := total - int64(len(uploadable))
	wrapped := progress
	if progress != nil && prepFailed > 0 {
		for done := int64(1); done <= prepFailed; done++ {
			progress(done, total)
		}
		wrapped = func(done, _ int64) {
			progress(prepFailed+done, total)
		}
	}

	if len(uploadable) == 0 {
		outcomes := make([]object.UploadOutcome, 0, len(items))
		for i, item := range items {
			outcomes = append(outcomes, object.UploadOutcome{Filename: item.Filename, Err: prepErr[i]})
		}
		return outcomes
	}

	results, err := s.client.UploadMany(ctx, uploadable, defaultUploadWorkers, wrapped)
	if err != nil {
		// Call-wide validation failure: mirror it into every item slot.
		outcomes := make([]object.UploadOutcome, 0, len(items))
		for _, item := range items {
			outcomes = append(outcomes, object.UploadOutcome{Filename: item.Filename, Err: err})
		}
		return outcomes
	}

	outcomes := make([]object.UploadOutcome, 0, len(items))
	for _, res := range results {
		outcomes = append(outcomes, object.UploadOutcome{
			Filename:   res.Filename,
			Descriptor: res.Descriptor,
			Err:        res.Err,
		})
	}
	for i, err := range prepErr {
		if err != nil {
			outcomes = append(outcomes, object.UploadOutcome{Filename: items[i].Filename, Err: err})
		}
	}
	return outcomes
}

// Client exposes the underlying remote client for operations beyond the
// Store contract (bulk delete, listing, integrity uploads).
func (s *Store) Client() *Client { return s.client }

func collectionKey(coll object.CollectionRef, filename string) (string, error) {
	safe, err := util.SanitizeFileName(filename)
	if err != nil {
		return "", object.NewValidationError("invalid file name %q", filename)
	}
	return fmt.Sprintf("collections/%s/%s", coll.UniqueID, safe), nil
}

func uploadMetadata(coll object.CollectionRef, filename string) map[string]string {
	return map[string]string{
		"collection_id":     strconv.FormatInt(coll.ID, 10),
		"collection_uid":    coll.UniqueID,
		"original_filename": path.Base(filename),
		"upload_timestamp":  strconv.FormatInt(time.Now().Unix(), 10),
	}
}

var _ object.Store = (*Store)(nil)
