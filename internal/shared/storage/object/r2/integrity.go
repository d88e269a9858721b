package r2

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// IntegrityResult is the outcome of an integrity-checked upload.
type IntegrityResult struct {
	Descriptor object.UploadDescriptor
	Algorithm  string
	Digest     string
	// Verified is false only when the backend did not echo the stored digest
	// and the client is configured to tolerate that.
	Verified bool
}

// ComputeDigest hashes the full reader with the named algorithm (md5 or
// sha256) and resets it to the start.
func (c *Client) ComputeDigest(r io.ReadSeeker, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UploadWithIntegrityCheck uploads the object with its content digest stored
// as metadata, re-reads the stored metadata, and verifies the digests agree.
// On mismatch the just-written object is deleted and an upload error raised,
// so no half-verified object remains. A backend that does not echo the digest
// at all is a distinct condition: fatal when RequireDigestEcho is set,
// tolerated (result.Verified=false) otherwise.
func (c *Client) UploadWithIntegrityCheck(ctx context.Context, r io.ReadSeeker, filename, key, algorithm string) (IntegrityResult, error) {
	if algorithm == "" {
		algorithm = "md5"
	}

	digest, err := c.ComputeDigest(r, algorithm)
	if err != nil {
		if _, ok := err.(*object.ValidationError); ok {
			return IntegrityResult{}, err
		}
		return IntegrityResult{}, fmt.Errorf("compute digest: %w", err)
	}

	metaKey := algorithm + "_hash"
	desc, err := c.UploadSingle(ctx, r, filename, key, map[string]string{metaKey: digest}, nil)
	if err != nil {
		return IntegrityResult{}, err
	}

	info, err := c.GetFileInfo(ctx, desc.Key)
	if err != nil {
		return IntegrityResult{}, err
	}
	if info == nil {
		return IntegrityResult{}, &object.UploadError{Message: "object missing immediately after upload"}
	}

	stored := info.Metadata[metaKey]
	switch {
	case stored == "":
		if c.requireDigestEcho {
			c.discardUnverified(ctx, desc.Key)
			return IntegrityResult{}, &object.UploadError{
				Message: "backend did not echo stored digest, integrity unverifiable",
			}
		}
		telemetry.Warn("r2.integrity.digest_not_echoed", map[string]any{
			"key":       desc.Key,
			"algorithm": algorithm,
		})
		return IntegrityResult{Descriptor: desc, Algorithm: algorithm, Digest: digest}, nil

	case stored != digest:
		telemetry.Error("r2.integrity.mismatch", map[string]any{
			"key":      desc.Key,
			"expected": digest,
			"stored":   stored,
		})
		c.discardUnverified(ctx, desc.Key)
		return IntegrityResult{}, &object.UploadError{
			Message: "file integrity check failed after upload",
		}
	}

	return IntegrityResult{
		Descriptor: desc,
		Algorithm:  algorithm,
		Digest:     digest,
		Verified:   true,
	}, nil
}

func (c *Client) discardUnverified(ctx context.Context, key string) {
	if _, err := c.Delete(ctx, key); err != nil {
		telemetry.Warn("r2.integrity.cleanup_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, object.NewValidationError("unsupported digest algorithm %q", algorithm)
	}
}
