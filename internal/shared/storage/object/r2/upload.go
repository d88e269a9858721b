package r2

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// UploadSingle transfers one object to the bucket, choosing single-part or
// multipart by size. When key is empty it is derived from the file name as
// uploads/YYYY/MM/DD/<sanitized>. progress, when non-nil, receives
// (bytesTransferred, bytesTotal).
func (c *Client) UploadSingle(ctx context.Context, r io.ReadSeeker, filename, key string, metadata map[string]string, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	if filename == "" && key == "" {
		return object.UploadDescriptor{}, object.NewValidationError("either filename or key must be provided")
	}

	if key == "" {
		derived, err := generateKey(filename)
		if err != nil {
			return object.UploadDescriptor{}, err
		}
		key = derived
	}

	name := filename
	if name == "" {
		name = path.Base(key)
	}
	info, err := c.ValidateFile(r, name)
	if err != nil {
		return object.UploadDescriptor{}, err
	}

	telemetry.Info("r2.upload.start", map[string]any{
		"key":        key,
		"size_bytes": info.SizeBytes,
	})

	var desc object.UploadDescriptor
	if info.SizeBytes >= multipartThreshold {
		desc, err = c.multipartUpload(ctx, r, key, info, metadata, progress)
	} else {
		desc, err = c.putObject(ctx, r, key, info, metadata, progress)
	}
	if err != nil {
		return object.UploadDescriptor{}, err
	}

	telemetry.Info("r2.upload.done", map[string]any{
		"key":    key,
		"method": desc.Method,
	})
	return desc, nil
}

func (c *Client) putObject(ctx context.Context, r io.ReadSeeker, key string, info FileInfo, metadata map[string]string, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	var body io.Reader = r
	if progress != nil {
		body = &progressReader{r: r, total: info.SizeBytes, progress: progress}
	}

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(info.ContentType),
		ContentLength: aws.Int64(info.SizeBytes),
		Metadata:      metadata,
	})
	if err != nil {
		return object.UploadDescriptor{}, c.mapAPIError("put", err)
	}

	return object.UploadDescriptor{
		Key:         key,
		Backend:     object.BackendR2,
		SizeBytes:   info.SizeBytes,
		ContentType: info.ContentType,
		Method:      object.MethodSinglePart,
	}, nil
}

// multipartUpload streams the object as sequentially numbered parts and
// finalizes with the ordered (part number, ETag) list. Every exit path that
// is not a successful finalize aborts the session; abort failures are logged,
// never propagated.
func (c *Client) multipartUpload(ctx context.Context, r io.Reader, key string, info FileInfo, metadata map[string]string, progress object.ProgressFunc) (object.UploadDescriptor, error) {
	partSize := calculatePartSize(info.SizeBytes)
	partsCount := (info.SizeBytes + partSize - 1) / partSize

	telemetry.Info("r2.multipart.start", map[string]any{
		"key":       key,
		"parts":     partsCount,
		"part_size": partSize,
	})

	created, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(info.ContentType),
		Metadata:    metadata,
	})
	if err != nil {
		return object.UploadDescriptor{}, c.mapAPIError("create multipart", err)
	}
	uploadID := aws.ToString(created.UploadId)

	finalized := false
	defer func() {
		if !finalized {
			c.abortMultipart(ctx, key, uploadID)
		}
	}()

	parts := make([]s3types.CompletedPart, 0, partsCount)
	buf := make([]byte, partSize)
	var sent int64

	for partNum := int32(1); int64(partNum) <= partsCount; partNum++ {
		chunk := buf
		if remaining := info.SizeBytes - sent; remaining < partSize {
			chunk = buf[:remaining]
		}
		if _, err := io.ReadFull(r, chunk); err != nil {
			return object.UploadDescriptor{}, &object.UploadError{
				Message: "read upload part",
				Err:     err,
			}
		}

		out, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(c.bucket),
			Key:           aws.String(key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(partNum),
			Body:          bytes.NewReader(chunk),
			ContentLength: aws.Int64(int64(len(chunk))),
		})
		if err != nil {
			return object.UploadDescriptor{}, c.mapAPIError("upload part", err)
		}

		parts = append(parts, s3types.CompletedPart{
			ETag:       out.ETag,
			PartNumber: aws.Int32(partNum),
		})

		sent += int64(len(chunk))
		if progress != nil {
			progress(sent, info.SizeBytes)
		}
	}

	_, err = c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return object.UploadDescriptor{}, c.mapAPIError("complete multipart", err)
	}
	finalized = true

	return object.UploadDescriptor{
		Key:         key,
		Backend:     object.BackendR2,
		SizeBytes:   info.SizeBytes,
		ContentType: info.ContentType,
		Method:      object.MethodMultipart,
		PartsCount:  int(partsCount),
		PartSize:    partSize,
	}, nil
}

func (c *Client) abortMultipart(ctx context.Context, key, uploadID string) {
	_, err := c.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		telemetry.Warn("r2.multipart.abort_failed", map[string]any{
			"key":       key,
			"upload_id": uploadID,
			"error":     err.Error(),
		})
		return
	}
	telemetry.Info("r2.multipart.aborted", map[string]any{
		"key":       key,
		"upload_id": uploadID,
	})
}

type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress object.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.progress(p.sent, p.total)
	}
	return n, err
}
