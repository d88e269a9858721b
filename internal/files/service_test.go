package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"gallery-backend/internal/shared/storage/object"
)

// fakeStore is an in-memory object.Store with per-filename failure injection.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failFor map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failFor: map[string]error{}}
}

func (s *fakeStore) Backend() string { return "fake" }

func (s *fakeStore) Upload(_ context.Context, coll object.CollectionRef, filename string, r io.ReadSeeker, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[filename]; ok {
		return object.UploadDescriptor{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return object.UploadDescriptor{}, err
	}
	key := fmt.Sprintf("collections/%s/%s", coll.UniqueID, filename)
	s.objects[key] = data
	return object.UploadDescriptor{
		Key:         key,
		Backend:     "fake",
		SizeBytes:   int64(len(data)),
		ContentType: "image/jpeg",
		Method:      object.MethodSinglePart,
	}, nil
}

func (s *fakeStore) UploadKey(_ context.Context, key, _ string, r io.ReadSeeker) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *fakeStore) Fetch(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *fakeStore) URLFor(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://fake.example.com/" + key, nil
}

func (s *fakeStore) BatchUpload(ctx context.Context, coll object.CollectionRef, items []object.UploadItem, progress object.ProgressFunc) []object.UploadOutcome {
	outcomes := make([]object.UploadOutcome, 0, len(items))
	for i, item := range items {
		desc, err := s.Upload(ctx, coll, item.Filename, item.Body, nil)
		outcomes = append(outcomes, object.UploadOutcome{
			Filename:   item.Filename,
			Descriptor: desc,
			Err:        err,
		})
		if progress != nil {
			progress(int64(i+1), int64(len(items)))
		}
	}
	return outcomes
}

// failingCreateRepo fails every Create to simulate a dead catalog.
type failingCreateRepo struct {
	*MemoryRepo
}

func (r *failingCreateRepo) Create(context.Context, File) error {
	return errors.New("database unavailable")
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, fileID)
	return nil
}

var testColl = object.CollectionRef{ID: 7, UniqueID: "uid1"}

func TestServiceUploadRecordsAndDispatches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	svc := &Service{Store: store, Repo: NewMemoryRepo(), Dispatch: dispatcher}

	f, err := svc.Upload(context.Background(), testColl, "pic.jpg",
		bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if f.StoragePath != "collections/uid1/pic.jpg" {
		t.Errorf("storage path = %q", f.StoragePath)
	}
	if !f.UploadComplete {
		t.Error("record not marked complete")
	}

	got, err := svc.Get(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OriginalFilename != "pic.jpg" {
		t.Errorf("original filename = %q", got.OriginalFilename)
	}

	if len(dispatcher.ids) != 1 || dispatcher.ids[0] != f.ID {
		t.Errorf("dispatched ids = %v, want [%s]", dispatcher.ids, f.ID)
	}
}

func TestServiceUploadCatalogFailureCleansUp(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := &Service{Store: store, Repo: &failingCreateRepo{NewMemoryRepo()}}

	_, err := svc.Upload(context.Background(), testColl, "pic.jpg",
		bytes.NewReader([]byte("payload")))
	if !IsPersistence(err) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
	if len(store.objects) != 0 {
		t.Errorf("orphaned object left in storage: %v", store.objects)
	}
}

func TestServiceBatchUploadPartialFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failFor["bad.jpg"] = object.NewValidationError("corrupt stream")
	svc := &Service{Store: store, Repo: NewMemoryRepo()}

	report, err := svc.BatchUpload(context.Background(), testColl, []UploadInput{
		{Filename: "a.jpg", Body: bytes.NewReader([]byte("aaa"))},
		{Filename: "bad.jpg", Body: bytes.NewReader([]byte("bbb"))},
		{Filename: "c.jpg", Body: bytes.NewReader([]byte("ccc"))},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 2/1", report.Succeeded, report.Failed)
	}
	for _, res := range report.Results {
		if res.Filename == "bad.jpg" {
			if res.Success || res.Err == nil {
				t.Error("failed item reported as success")
			}
		} else if !res.Success {
			t.Errorf("%s failed: %v", res.Filename, res.Err)
		}
	}

	list, err := svc.List(context.Background(), testColl)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("catalog has %d records, want 2", len(list))
	}
}

func TestServiceBatchUploadLimits(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: newFakeStore(), Repo: NewMemoryRepo()}

	if _, err := svc.BatchUpload(context.Background(), testColl, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty batch err = %v, want ErrInvalidInput", err)
	}

	inputs := make([]UploadInput, maxBatchFiles+1)
	for i := range inputs {
		inputs[i] = UploadInput{
			Filename: fmt.Sprintf("f%d.jpg", i),
			Body:     bytes.NewReader([]byte("x")),
		}
	}
	if _, err := svc.BatchUpload(context.Background(), testColl, inputs); !object.IsValidation(err) {
		t.Fatalf("oversized batch err = %v, want validation", err)
	}
}

func TestServiceDeleteRemovesVariants(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	repo := NewMemoryRepo()
	svc := &Service{Store: store, Repo: repo}

	f, err := svc.Upload(context.Background(), testColl, "pic.jpg",
		bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	thumbKey := "collections/uid1/variants/thumb_pic.jpg"
	mediumKey := "collections/uid1/variants/medium_pic.jpg"
	store.objects[thumbKey] = []byte("t")
	store.objects[mediumKey] = []byte("m")
	if err := repo.UpdateVariantPaths(context.Background(), []VariantUpdate{
		{FileID: f.ID, ThumbPath: thumbKey, MediumPath: mediumKey},
	}); err != nil {
		t.Fatalf("update variants: %v", err)
	}

	if err := svc.Delete(context.Background(), f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(store.objects) != 0 {
		t.Errorf("objects remain after delete: %v", store.objects)
	}
	if _, err := svc.Get(context.Background(), f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}
}

func TestServiceDeleteByCollection(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := &Service{Store: store, Repo: NewMemoryRepo()}

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if _, err := svc.Upload(context.Background(), testColl, name,
			bytes.NewReader([]byte("payload"))); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	n, err := svc.DeleteByCollection(context.Background(), testColl)
	if err != nil {
		t.Fatalf("delete by collection: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d records, want 3", n)
	}
	if len(store.objects) != 0 {
		t.Errorf("objects remain: %v", store.objects)
	}
}

func TestServiceFileURL(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := &Service{Store: store, Repo: NewMemoryRepo()}

	f, err := svc.Upload(context.Background(), testColl, "pic.jpg",
		bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	url, err := svc.FileURL(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("file url: %v", err)
	}
	if url != "https://fake.example.com/"+f.StoragePath {
		t.Errorf("url = %q", url)
	}
}

var _ object.Store = (*fakeStore)(nil)
