package collections

import "context"

// CollectionsRepo defines persistence operations for collections.
type CollectionsRepo interface {
	// Create inserts the collection and returns it with the assigned ID.
	Create(ctx context.Context, c Collection) (Collection, error)
	GetByUID(ctx context.Context, uniqueID string) (Collection, error)
	List(ctx context.Context) ([]Collection, error)
	Delete(ctx context.Context, uniqueID string) error
}
