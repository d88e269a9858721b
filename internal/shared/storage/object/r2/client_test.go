package r2

import (
	"bytes"
	"strings"
	"testing"

	"gallery-backend/internal/shared/storage/object"
)

func TestCalculatePartSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		fileSize int64
	}{
		{"at threshold", multipartThreshold},
		{"just above threshold", multipartThreshold + 1},
		{"500 MiB", 500 << 20},
		{"1 GiB", 1 << 30},
		{"max file size", maxFileSize},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			partSize := calculatePartSize(tc.fileSize)
			if partSize < minPartSize {
				t.Errorf("part size %d below minimum %d", partSize, minPartSize)
			}
			if partSize > maxPartSize {
				t.Errorf("part size %d above maximum %d", partSize, maxPartSize)
			}
			if partSize%(1<<20) != 0 && partSize != maxPartSize {
				t.Errorf("part size %d not a whole number of MiB", partSize)
			}
			parts := (tc.fileSize + partSize - 1) / partSize
			if parts > maxParts {
				t.Errorf("size %d yields %d parts, over the %d limit", tc.fileSize, parts, maxParts)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	c := newTestClient(newFakeS3(), &fakePresign{})

	t.Run("rejects unknown extension", func(t *testing.T) {
		t.Parallel()
		_, err := c.ValidateFile(bytes.NewReader([]byte("data")), "report.pdf")
		if !object.IsValidation(err) {
			t.Fatalf("want validation error, got %v", err)
		}
	})

	t.Run("rejects empty file", func(t *testing.T) {
		t.Parallel()
		_, err := c.ValidateFile(bytes.NewReader(nil), "photo.jpg")
		if !object.IsValidation(err) {
			t.Fatalf("want validation error, got %v", err)
		}
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		t.Parallel()
		_, err := c.ValidateFile(&zeroReader{size: maxFileSize + 1}, "huge.png")
		if !object.IsValidation(err) {
			t.Fatalf("want validation error, got %v", err)
		}
	})

	t.Run("accepts image and reports content type", func(t *testing.T) {
		t.Parallel()
		info, err := c.ValidateFile(bytes.NewReader([]byte("fake jpeg bytes")), "photo.JPG")
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if info.SizeBytes != 15 {
			t.Errorf("size = %d, want 15", info.SizeBytes)
		}
		if info.ContentType != "image/jpeg" {
			t.Errorf("content type = %q, want image/jpeg", info.ContentType)
		}
		if info.Ext != ".jpg" {
			t.Errorf("ext = %q, want .jpg", info.Ext)
		}
	})
}

func TestGenerateKeySanitizes(t *testing.T) {
	t.Parallel()

	key, err := generateKey("../../etc pass wd$.png")
	if err != nil {
		t.Fatalf("generateKey: %v", err)
	}
	if !strings.HasPrefix(key, "uploads/") {
		t.Errorf("key %q missing uploads/ prefix", key)
	}
	name := key[strings.LastIndex(key, "/")+1:]
	for _, r := range name {
		ok := r == '.' || r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Errorf("key name %q contains disallowed rune %q", name, r)
		}
	}
}
