package r2

import (
	"context"

	"gallery-backend/internal/batch"
	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// ItemResult is the per-file outcome of UploadMany.
type ItemResult struct {
	Filename   string
	Success    bool
	Descriptor object.UploadDescriptor
	Err        error
}

// UploadMany uploads up to 100 items concurrently with at most maxWorkers
// goroutines (default 5). One item's failure becomes that item's result, never
// a call-wide failure. progress receives a monotonically increasing completed
// count as items finish, in completion order.
func (c *Client) UploadMany(ctx context.Context, items []object.UploadItem, maxWorkers int, progress object.ProgressFunc) ([]ItemResult, error) {
	if len(items) == 0 {
		return nil, object.NewValidationError("no files provided for upload")
	}
	if len(items) > maxBatchUploads {
		return nil, object.NewValidationError("too many files: maximum %d per batch", maxBatchUploads)
	}
	if maxWorkers <= 0 {
		maxWorkers = defaultUploadWorkers
	}

	telemetry.Info("r2.batch.start", map[string]any{
		"items":   len(items),
		"workers": maxWorkers,
	})

	outcomes := batch.Run(ctx, items, maxWorkers, progress,
		func(ctx context.Context, item object.UploadItem) (object.UploadDescriptor, error) {
			return c.UploadSingle(ctx, item.Body, item.Filename, item.Key, item.Metadata, nil)
		})

	results := make([]ItemResult, 0, len(outcomes))
	succeeded := 0
	for _, o := range outcomes {
		item := items[o.Index]
		if o.Err != nil {
			telemetry.Error("r2.batch.item_failed", map[string]any{
				"filename": item.Filename,
				"error":    o.Err.Error(),
			})
			results = append(results, ItemResult{Filename: item.Filename, Err: o.Err})
			continue
		}
		succeeded++
		results = append(results, ItemResult{
			Filename:   item.Filename,
			Success:    true,
			Descriptor: o.Value,
		})
	}

	telemetry.Info("r2.batch.done", map[string]any{
		"items":     len(items),
		"succeeded": succeeded,
	})
	return results, nil
}
