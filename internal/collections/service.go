package collections

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"gallery-backend/internal/files"
	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// Service contains business logic for collections.
type Service struct {
	Repo  CollectionsRepo
	Files *files.Service
}

// Create records a new collection with a generated unique ID.
func (s *Service) Create(ctx context.Context, name, description string) (Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Collection{}, ErrInvalidInput
	}

	c := Collection{
		UniqueID:    newUniqueID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	return s.Repo.Create(ctx, c)
}

// Get returns one collection by its public unique ID.
func (s *Service) Get(ctx context.Context, uniqueID string) (Collection, error) {
	if uniqueID == "" {
		return Collection{}, ErrInvalidInput
	}
	return s.Repo.GetByUID(ctx, uniqueID)
}

// List returns every collection.
func (s *Service) List(ctx context.Context) ([]Collection, error) {
	return s.Repo.List(ctx)
}

// Delete removes the collection, its file records, and their stored objects.
func (s *Service) Delete(ctx context.Context, uniqueID string) error {
	c, err := s.Repo.GetByUID(ctx, uniqueID)
	if err != nil {
		return err
	}

	ref := object.CollectionRef{ID: c.ID, UniqueID: c.UniqueID}
	n, err := s.Files.DeleteByCollection(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, uniqueID); err != nil {
		return err
	}

	telemetry.Info("collections.deleted", map[string]any{
		"unique_id":     uniqueID,
		"files_removed": n,
	})
	return nil
}

// Resolve maps a public unique ID to a storage reference. It satisfies the
// file handler's collection resolver.
func (s *Service) Resolve(ctx context.Context, uniqueID string) (object.CollectionRef, error) {
	c, err := s.Get(ctx, uniqueID)
	if err != nil {
		return object.CollectionRef{}, err
	}
	return object.CollectionRef{ID: c.ID, UniqueID: c.UniqueID}, nil
}

// newUniqueID returns a compact hex identifier safe for URLs and storage
// keys.
func newUniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
