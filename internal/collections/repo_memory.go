package collections

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of CollectionsRepo, used for
// local development and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[string]Collection // uniqueId -> collection
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Collection)}
}

// Create stores a new collection with a sequential ID.
func (r *MemoryRepo) Create(ctx context.Context, c Collection) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.data[c.UniqueID] = c
	return c, nil
}

// GetByUID returns one collection by its public unique ID.
func (r *MemoryRepo) GetByUID(ctx context.Context, uniqueID string) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[uniqueID]
	if !ok {
		return Collection{}, ErrNotFound
	}
	return c, nil
}

// List returns every collection, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Collection, 0, len(r.data))
	for _, c := range r.data {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes one collection.
func (r *MemoryRepo) Delete(ctx context.Context, uniqueID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[uniqueID]; !ok {
		return ErrNotFound
	}
	delete(r.data, uniqueID)
	return nil
}

var _ CollectionsRepo = (*MemoryRepo)(nil)
