package variants

import (
	"bytes"
	"context"
	"image"
	"strings"
	"time"

	"gallery-backend/internal/batch"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
	"gallery-backend/internal/shared/util"
)

// FileRef identifies one catalog file to generate derivatives for. The
// surrounding application supplies it; this package never reads the catalog
// directly.
type FileRef struct {
	ID          string
	StoragePath string
	MimeType    string
}

// PathUpdate carries generated derivative paths back to the catalog.
type PathUpdate struct {
	FileID     string
	ThumbPath  string
	MediumPath string
}

// CatalogRepo records derivative paths. Updates for one file must land
// atomically.
type CatalogRepo interface {
	UpdateVariantPaths(ctx context.Context, updates []PathUpdate) error
}

// Service generates and stores image derivatives.
type Service struct {
	Store   object.Store
	Catalog CatalogRepo
	// Workers bounds batch concurrency; zero means the default of 3.
	Workers int
}

// Result reports one file's variant generation. ThumbErr and MediumErr hold
// per-derivative failures; a Result with at least one path set counts as a
// success.
type Result struct {
	FileID     string
	ThumbPath  string
	MediumPath string
	ThumbErr   error
	MediumErr  error
}

// GenerateAll produces the thumbnail and medium rendition for one file,
// stores them next to the original under a variants/ prefix, and records the
// paths in a single catalog write. One derivative failing does not stop the
// other; both failing fails the call.
func (s *Service) GenerateAll(ctx context.Context, ref FileRef) (Result, error) {
	if !strings.HasPrefix(ref.MimeType, "image/") {
		return Result{}, &ContentError{Reason: "not an image: " + ref.MimeType}
	}
	if ext := util.FileExt(ref.StoragePath); ext == "" {
		return Result{}, &ContentError{Reason: "storage key has no extension: " + ref.StoragePath}
	} else if _, ok := supportedExtensions[ext]; !ok {
		return Result{}, &ContentError{Reason: "unsupported source format " + ext}
	}

	start := time.Now()

	rc, err := s.Store.Fetch(ctx, ref.StoragePath)
	if err != nil {
		metrics.IncVariantFailed()
		return Result{}, err
	}
	img, err := decode(rc)
	_ = rc.Close()
	if err != nil {
		metrics.IncVariantFailed()
		return Result{}, err
	}

	res := Result{FileID: ref.ID}

	thumbKey := VariantKey(TypeThumb, ref.StoragePath)
	if err := s.render(ctx, thumbKey, renderThumb(img), ThumbQuality); err != nil {
		res.ThumbErr = err
		telemetry.Warn("variants.thumb_failed", map[string]any{
			"file_id": ref.ID,
			"error":   err.Error(),
		})
	} else {
		res.ThumbPath = thumbKey
	}

	mediumKey := VariantKey(TypeMedium, ref.StoragePath)
	if err := s.render(ctx, mediumKey, renderMedium(img), MediumQuality); err != nil {
		res.MediumErr = err
		telemetry.Warn("variants.medium_failed", map[string]any{
			"file_id": ref.ID,
			"error":   err.Error(),
		})
	} else {
		res.MediumPath = mediumKey
	}

	if res.ThumbPath == "" && res.MediumPath == "" {
		metrics.IncVariantFailed()
		if res.ThumbErr != nil {
			return res, res.ThumbErr
		}
		return res, res.MediumErr
	}

	if err := s.Catalog.UpdateVariantPaths(ctx, []PathUpdate{{
		FileID:     ref.ID,
		ThumbPath:  res.ThumbPath,
		MediumPath: res.MediumPath,
	}}); err != nil {
		metrics.IncVariantFailed()
		return res, &PersistenceError{Err: err}
	}

	metrics.IncVariantGenerated()
	metrics.ObserveVariantDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	telemetry.Info("variants.generated", map[string]any{
		"file_id": ref.ID,
		"thumb":   res.ThumbPath != "",
		"medium":  res.MediumPath != "",
	})
	return res, nil
}

// BatchGenerate processes several files concurrently, isolating per-file
// failures. Outcomes come back in completion order.
func (s *Service) BatchGenerate(ctx context.Context, refs []FileRef, progress object.ProgressFunc) []batch.Outcome[Result] {
	workers := s.Workers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	return batch.Run(ctx, refs, workers, progress,
		func(ctx context.Context, ref FileRef) (Result, error) {
			return s.GenerateAll(ctx, ref)
		})
}

func (s *Service) render(ctx context.Context, key string, img image.Image, quality int) error {
	encoded, err := encodeJPEG(img, quality)
	if err != nil {
		return err
	}
	_, err = s.Store.UploadKey(ctx, key, "image/jpeg", bytes.NewReader(encoded))
	return err
}
