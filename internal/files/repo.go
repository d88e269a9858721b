package files

import "context"

// FilesRepo defines persistence operations for the file catalog.
type FilesRepo interface {
	Create(ctx context.Context, f File) error
	GetByID(ctx context.Context, id string) (File, error)
	ListByCollection(ctx context.Context, collectionID int64) ([]File, error)
	// UpdateVariantPaths records derivative paths for several files in one
	// transaction: either every update lands or none do.
	UpdateVariantPaths(ctx context.Context, updates []VariantUpdate) error
	Delete(ctx context.Context, id string) error
	// DeleteByCollection removes every record of a collection and returns
	// the deleted rows so storage objects can be cleaned up.
	DeleteByCollection(ctx context.Context, collectionID int64) ([]File, error)
}
