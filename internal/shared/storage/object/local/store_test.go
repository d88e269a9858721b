package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gallery-backend/internal/shared/storage/object"
)

func TestUploadStoresUnderCollection(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	coll := object.CollectionRef{ID: 1, UniqueID: "uid1"}

	payload := []byte("local payload")
	desc, err := store.Upload(context.Background(), coll, "pic.jpg",
		bytes.NewReader(payload), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !strings.HasPrefix(desc.Key, "uploads/uid1/") {
		t.Errorf("key = %q, want uploads/uid1/ prefix", desc.Key)
	}
	if !strings.HasSuffix(desc.Key, ".jpg") {
		t.Errorf("key = %q, extension not preserved", desc.Key)
	}
	if strings.Contains(desc.Key, "pic") {
		t.Errorf("key = %q leaks the original name", desc.Key)
	}
	if desc.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", desc.SizeBytes, len(payload))
	}
	if desc.Method != object.MethodLocal {
		t.Errorf("method = %q", desc.Method)
	}

	rc, err := store.Fetch(context.Background(), desc.Key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("fetched bytes differ from upload")
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	_, err := store.Upload(context.Background(),
		object.CollectionRef{UniqueID: "uid1"}, "empty.jpg", bytes.NewReader(nil), nil)
	if !object.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	desc, err := store.Upload(context.Background(),
		object.CollectionRef{UniqueID: "uid1"}, "pic.jpg",
		bytes.NewReader([]byte("payload")), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	deleted, err := store.Delete(context.Background(), desc.Key)
	if err != nil || !deleted {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = store.Delete(context.Background(), desc.Key)
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())

	for _, key := range []string{"../outside.jpg", "/etc/passwd", "a/../../b"} {
		if _, err := store.Fetch(context.Background(), key); !object.IsValidation(err) {
			t.Errorf("Fetch(%q) err = %v, want validation", key, err)
		}
		if _, err := store.UploadKey(context.Background(), key, "",
			bytes.NewReader([]byte("x"))); !object.IsValidation(err) {
			t.Errorf("UploadKey(%q) err = %v, want validation", key, err)
		}
	}
}

func TestUploadKeyWritesDerivative(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir)

	key := "uploads/uid1/variants/thumb_pic.jpg"
	payload := []byte("thumb bytes")
	size, err := store.UploadKey(context.Background(), key, "image/jpeg",
		bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload key: %v", err)
	}
	if size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", size, len(payload))
	}

	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Errorf("derivative not on disk: %v", err)
	}
}

func TestURLForServesUnderFiles(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	url, err := store.URLFor(context.Background(), "uploads/uid1/a.jpg", time.Hour)
	if err != nil {
		t.Fatalf("urlfor: %v", err)
	}
	if url != "/files/uploads/uid1/a.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestBatchUploadSequentialProgress(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	coll := object.CollectionRef{UniqueID: "uid1"}

	items := []object.UploadItem{
		{Filename: "a.jpg", Body: bytes.NewReader([]byte("aaa"))},
		{Filename: "", Body: bytes.NewReader([]byte("bbb"))},
		{Filename: "c.png", Body: bytes.NewReader([]byte("ccc"))},
	}

	var calls []int64
	outcomes := store.BatchUpload(context.Background(), coll, items,
		func(done, total int64) {
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			calls = append(calls, done)
		})

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("valid items failed: %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("empty filename did not fail")
	}
	if len(calls) != 3 || calls[0] != 1 || calls[2] != 3 {
		t.Errorf("progress calls = %v", calls)
	}
}
