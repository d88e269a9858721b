package workerproc

import (
	"context"
	"errors"
	"testing"

	"gallery-backend/internal/queue"
)

type fakeProcessor struct {
	ids []string
	err error
}

func (p *fakeProcessor) ProcessFile(_ context.Context, fileID string) error {
	p.ids = append(p.ids, fileID)
	return p.err
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		body := `{"fileId":"file-1","requestId":"req-1","version":1}`
		msg, meta, err := ParseMessage(body)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if msg.FileID != "file-1" || msg.RequestID != "req-1" {
			t.Errorf("msg = %+v", msg)
		}
		if meta.BodyLen != len(body) || meta.BodySHA == "" {
			t.Errorf("meta = %+v", meta)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseMessage("   ")
		var e ErrEmptyBody
		if !errors.As(err, &e) {
			t.Fatalf("err = %v, want ErrEmptyBody", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		_, meta, err := ParseMessage("{broken")
		var e ErrDecode
		if !errors.As(err, &e) {
			t.Fatalf("err = %v, want ErrDecode", err)
		}
		if meta.BodyLen != len("{broken") {
			t.Errorf("meta len = %d", meta.BodyLen)
		}
	})

	t.Run("missing file id", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseMessage(`{"requestId":"req-1"}`)
		var e ErrMissingFileID
		if !errors.As(err, &e) {
			t.Fatalf("err = %v, want ErrMissingFileID", err)
		}
		if e.RequestID != "req-1" {
			t.Errorf("request id = %q", e.RequestID)
		}
	})
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	body := func(msg queue.Message) string {
		payload, err := queue.EncodeMessage(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return string(payload)
	}

	t.Run("dispatches to processor", func(t *testing.T) {
		t.Parallel()
		p := &fakeProcessor{}
		err := HandleMessage(context.Background(), p,
			body(queue.Message{FileID: "file-1", RequestID: "req-1", Version: 1}))
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		if len(p.ids) != 1 || p.ids[0] != "file-1" {
			t.Errorf("processed ids = %v", p.ids)
		}
	})

	t.Run("wraps processor failures", func(t *testing.T) {
		t.Parallel()
		p := &fakeProcessor{err: errors.New("decode exploded")}
		err := HandleMessage(context.Background(), p,
			body(queue.Message{FileID: "file-1", RequestID: "req-1"}))
		var procErr ErrProcess
		if !errors.As(err, &procErr) {
			t.Fatalf("err = %v, want ErrProcess", err)
		}
		if procErr.FileID != "file-1" || procErr.RequestID != "req-1" {
			t.Errorf("procErr = %+v", procErr)
		}
	})

	t.Run("nil processor", func(t *testing.T) {
		t.Parallel()
		if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
			t.Fatal("want error for nil processor")
		}
	})
}
