package files

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of FilesRepo, used for local
// development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]File // fileId -> record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]File)}
}

// Create stores a new file record.
func (r *MemoryRepo) Create(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[f.ID] = f
	return nil
}

// GetByID returns one file record.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.data[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

// ListByCollection returns the collection's files ordered by creation time.
func (r *MemoryRepo) ListByCollection(ctx context.Context, collectionID int64) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []File
	for _, f := range r.data {
		if f.CollectionID == collectionID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateVariantPaths applies every update or none: unknown file IDs fail the
// whole call without touching other records.
func (r *MemoryRepo) UpdateVariantPaths(ctx context.Context, updates []VariantUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if _, ok := r.data[u.FileID]; !ok {
			return ErrNotFound
		}
	}
	for _, u := range updates {
		f := r.data[u.FileID]
		if u.ThumbPath != "" {
			f.ThumbPath = u.ThumbPath
		}
		if u.MediumPath != "" {
			f.MediumPath = u.MediumPath
		}
		r.data[u.FileID] = f
	}
	return nil
}

// Delete removes one file record.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// DeleteByCollection removes and returns every record of the collection.
func (r *MemoryRepo) DeleteByCollection(ctx context.Context, collectionID int64) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []File
	for id, f := range r.data {
		if f.CollectionID == collectionID {
			out = append(out, f)
			delete(r.data, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ FilesRepo = (*MemoryRepo)(nil)
