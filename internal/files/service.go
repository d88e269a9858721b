package files

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

const maxBatchFiles = 100

// defaultURLTTL bounds how long links handed to clients stay valid.
const defaultURLTTL = time.Hour

// CollectionResolver maps a collection's public unique ID to a storage
// reference. Implemented by the collections service.
type CollectionResolver interface {
	Resolve(ctx context.Context, uniqueID string) (object.CollectionRef, error)
}

// VariantDispatcher enqueues variant generation for a freshly stored file.
// A nil dispatcher disables variant jobs.
type VariantDispatcher interface {
	Dispatch(ctx context.Context, fileID string) error
}

// Service contains business logic for the file catalog.
type Service struct {
	Store    object.Store
	Repo     FilesRepo
	Dispatch VariantDispatcher
	URLTTL   time.Duration
}

// UploadInput is one file submitted for storage.
type UploadInput struct {
	Filename string
	Body     io.ReadSeeker
}

// UploadResult is the per-file outcome of an upload request.
type UploadResult struct {
	Filename string
	Success  bool
	File     File
	Err      error
}

// BatchReport summarizes a multi-file upload.
type BatchReport struct {
	Results   []UploadResult
	Succeeded int
	Failed    int
}

// Upload stores one file and records it in the catalog. If the catalog write
// fails after the object landed, the stored object is removed and the error
// surfaces as a PersistenceError.
func (s *Service) Upload(ctx context.Context, coll object.CollectionRef, filename string, r io.ReadSeeker) (File, error) {
	if filename == "" {
		return File{}, ErrInvalidInput
	}

	metrics.IncUploadStarted()
	start := time.Now()

	desc, err := s.Store.Upload(ctx, coll, filename, r, nil)
	if err != nil {
		metrics.IncUploadFailed()
		return File{}, err
	}

	f, err := s.record(ctx, coll, filename, desc)
	if err != nil {
		metrics.IncUploadFailed()
		return File{}, err
	}

	metrics.IncUploadCompleted()
	metrics.ObserveUploadDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	s.dispatchVariants(ctx, f)
	return f, nil
}

// BatchUpload stores up to 100 files, isolating per-file failures. Results
// come back in completion order.
func (s *Service) BatchUpload(ctx context.Context, coll object.CollectionRef, inputs []UploadInput) (BatchReport, error) {
	if len(inputs) == 0 {
		return BatchReport{}, ErrInvalidInput
	}
	if len(inputs) > maxBatchFiles {
		return BatchReport{}, object.NewValidationError("too many files: maximum %d per request", maxBatchFiles)
	}

	items := make([]object.UploadItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, object.UploadItem{Filename: in.Filename, Body: in.Body})
	}

	outcomes := s.Store.BatchUpload(ctx, coll, items, nil)

	report := BatchReport{Results: make([]UploadResult, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			metrics.IncUploadFailed()
			report.Results = append(report.Results, UploadResult{Filename: o.Filename, Err: o.Err})
			continue
		}

		f, err := s.record(ctx, coll, o.Filename, o.Descriptor)
		if err != nil {
			report.Failed++
			metrics.IncUploadFailed()
			report.Results = append(report.Results, UploadResult{Filename: o.Filename, Err: err})
			continue
		}

		report.Succeeded++
		metrics.IncUploadCompleted()
		report.Results = append(report.Results, UploadResult{Filename: o.Filename, Success: true, File: f})
		s.dispatchVariants(ctx, f)
	}
	return report, nil
}

// Get returns one catalog record.
func (s *Service) Get(ctx context.Context, id string) (File, error) {
	if id == "" {
		return File{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns the collection's files.
func (s *Service) List(ctx context.Context, coll object.CollectionRef) ([]File, error) {
	return s.Repo.ListByCollection(ctx, coll.ID)
}

// FileURL returns a client-accessible URL for the stored object.
func (s *Service) FileURL(ctx context.Context, id string) (string, error) {
	f, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	ttl := s.URLTTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return s.Store.URLFor(ctx, f.StoragePath, ttl)
}

// Delete removes the catalog record and the stored object with its
// derivatives. Storage cleanup failures are logged, not fatal: the record is
// gone either way.
func (s *Service) Delete(ctx context.Context, id string) error {
	f, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeObjects(ctx, f)
	return nil
}

// DeleteByCollection removes every record of the collection and cleans up
// storage, returning how many records were deleted.
func (s *Service) DeleteByCollection(ctx context.Context, coll object.CollectionRef) (int, error) {
	deleted, err := s.Repo.DeleteByCollection(ctx, coll.ID)
	if err != nil {
		return 0, err
	}
	for _, f := range deleted {
		s.removeObjects(ctx, f)
	}
	return len(deleted), nil
}

func (s *Service) record(ctx context.Context, coll object.CollectionRef, filename string, desc object.UploadDescriptor) (File, error) {
	f := File{
		ID:               uuid.NewString(),
		CollectionID:     coll.ID,
		Filename:         filename,
		OriginalFilename: filename,
		MimeType:         desc.ContentType,
		SizeBytes:        desc.SizeBytes,
		StoragePath:      desc.Key,
		StorageBackend:   desc.Backend,
		UploadComplete:   true,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		// The object landed but the record did not: remove the orphan.
		if _, delErr := s.Store.Delete(ctx, desc.Key); delErr != nil {
			telemetry.Warn("files.orphan_cleanup_failed", map[string]any{
				"key":   desc.Key,
				"error": delErr.Error(),
			})
		}
		return File{}, &PersistenceError{Op: "create", Err: err}
	}
	return f, nil
}

func (s *Service) dispatchVariants(ctx context.Context, f File) {
	if s.Dispatch == nil || !f.IsImage() {
		return
	}
	if err := s.Dispatch.Dispatch(ctx, f.ID); err != nil {
		telemetry.Warn("files.variant_dispatch_failed", map[string]any{
			"file_id": f.ID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) removeObjects(ctx context.Context, f File) {
	for _, key := range []string{f.StoragePath, f.ThumbPath, f.MediumPath} {
		if key == "" {
			continue
		}
		if _, err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("files.storage_cleanup_failed", map[string]any{
				"file_id": f.ID,
				"key":     key,
				"error":   err.Error(),
			})
		}
	}
}
