package r2

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"gallery-backend/internal/shared/storage/object"
)

func TestUploadManyIsolatesFailures(t *testing.T) {
	t.Parallel()

	fake := newFakeS3()
	c := newTestClient(fake, &fakePresign{})

	items := []object.UploadItem{
		{Filename: "a.jpg", Body: bytes.NewReader([]byte("aaa"))},
		{Filename: "b.pdf", Body: bytes.NewReader([]byte("bbb"))},
		{Filename: "c.png", Body: bytes.NewReader([]byte("ccc"))},
	}

	var progressed []int64
	results, err := c.UploadMany(context.Background(), items, 2,
		func(done, _ int64) { progressed = append(progressed, done) })
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}

	byName := map[string]ItemResult{}
	for _, res := range results {
		byName[res.Filename] = res
	}
	if !byName["a.jpg"].Success || !byName["c.png"].Success {
		t.Errorf("expected a.jpg and c.png to succeed: %+v", byName)
	}
	if byName["b.pdf"].Success {
		t.Error("non-image upload unexpectedly succeeded")
	}
	if !object.IsValidation(byName["b.pdf"].Err) {
		t.Errorf("b.pdf error = %v, want validation", byName["b.pdf"].Err)
	}

	if len(progressed) != len(items) {
		t.Fatalf("got %d progress calls, want %d", len(progressed), len(items))
	}
	for i, done := range progressed {
		if done != int64(i+1) {
			t.Errorf("progress call %d reported %d completed", i, done)
		}
	}
}

func TestUploadManyLimits(t *testing.T) {
	t.Parallel()

	c := newTestClient(newFakeS3(), &fakePresign{})

	_, err := c.UploadMany(context.Background(), nil, 0, nil)
	if !object.IsValidation(err) {
		t.Fatalf("empty batch: want validation error, got %v", err)
	}

	items := make([]object.UploadItem, maxBatchUploads+1)
	for i := range items {
		items[i] = object.UploadItem{
			Filename: fmt.Sprintf("f%d.jpg", i),
			Body:     bytes.NewReader([]byte("x")),
		}
	}
	_, err = c.UploadMany(context.Background(), items, 0, nil)
	if !object.IsValidation(err) {
		t.Fatalf("oversized batch: want validation error, got %v", err)
	}
}

func TestDeleteMany(t *testing.T) {
	t.Parallel()

	fake := newFakeS3()
	c := newTestClient(fake, &fakePresign{})

	keys := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("photos/d%d.jpg", i)
		if _, err := c.UploadSingle(context.Background(),
			bytes.NewReader([]byte("payload")), "", key, nil, nil); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
		keys = append(keys, key)
	}

	res, err := c.DeleteMany(context.Background(), keys)
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if len(res.Deleted) != 3 || len(res.Errors) != 0 {
		t.Errorf("deleted=%d errors=%d, want 3/0", len(res.Deleted), len(res.Errors))
	}
	if len(fake.objects) != 0 {
		t.Errorf("%d objects remain after bulk delete", len(fake.objects))
	}

	tooMany := make([]string, maxBatchDeletes+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("k%d", i)
	}
	if _, err := c.DeleteMany(context.Background(), tooMany); !object.IsValidation(err) {
		t.Fatalf("oversized delete: want validation error, got %v", err)
	}
}
