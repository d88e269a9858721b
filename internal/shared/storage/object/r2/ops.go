package r2

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// ObjectInfo describes a stored object as reported by the backend.
type ObjectInfo struct {
	Key          string
	SizeBytes    int64
	ContentType  string
	LastModified time.Time
	ETag         string
	Metadata     map[string]string
}

// GetFileInfo returns the object's metadata, or nil when the key does not
// exist.
func (c *Client) GetFileInfo(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, c.mapAPIError("head", err)
	}

	info := &ObjectInfo{
		Key:         key,
		SizeBytes:   aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        trimETag(aws.ToString(out.ETag)),
		Metadata:    out.Metadata,
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Download opens the object at key for reading.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.mapAPIError("get", err)
	}
	return out.Body, nil
}

// Delete removes the object at key. A missing key returns (false, nil).
// Two deletes of the same key therefore report true, then false.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	info, err := c.GetFileInfo(ctx, key)
	if err != nil {
		return false, err
	}
	if info == nil {
		telemetry.Warn("r2.delete.not_found", map[string]any{"key": key})
		return false, nil
	}

	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return false, c.mapAPIError("delete", err)
	}
	telemetry.Info("r2.deleted", map[string]any{"key": key})
	return true, nil
}

// DeleteResult reports a bulk deletion: which keys were removed and which
// failed with a backend message.
type DeleteResult struct {
	Deleted []string
	Errors  []DeleteError
}

// DeleteError is one failed key of a bulk deletion.
type DeleteError struct {
	Key     string
	Message string
}

// DeleteMany removes up to 1000 keys in one backend call.
func (c *Client) DeleteMany(ctx context.Context, keys []string) (DeleteResult, error) {
	if len(keys) == 0 {
		return DeleteResult{}, nil
	}
	if len(keys) > maxBatchDeletes {
		return DeleteResult{}, object.NewValidationError("too many files to delete at once: maximum %d", maxBatchDeletes)
	}

	objects := make([]s3types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &s3types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	})
	if err != nil {
		return DeleteResult{}, c.mapAPIError("delete objects", err)
	}

	result := DeleteResult{}
	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(d.Key))
	}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, DeleteError{
			Key:     aws.ToString(e.Key),
			Message: aws.ToString(e.Message),
		})
	}

	telemetry.Info("r2.batch_delete.done", map[string]any{
		"deleted": len(result.Deleted),
		"errors":  len(result.Errors),
	})
	return result, nil
}

// ListedObject is one entry of a bucket listing.
type ListedObject struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
	ETag         string
}

// ListFiles lists up to maxKeys objects under prefix (capped at 1000).
func (c *Client) ListFiles(ctx context.Context, prefix string, maxKeys int) ([]ListedObject, error) {
	if maxKeys <= 0 || maxKeys > maxListKeys {
		maxKeys = maxListKeys
	}

	out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	})
	if err != nil {
		return nil, c.mapAPIError("list", err)
	}

	files := make([]ListedObject, 0, len(out.Contents))
	for _, obj := range out.Contents {
		entry := ListedObject{
			Key:       aws.ToString(obj.Key),
			SizeBytes: aws.ToInt64(obj.Size),
			ETag:      trimETag(aws.ToString(obj.ETag)),
		}
		if obj.LastModified != nil {
			entry.LastModified = *obj.LastModified
		}
		files = append(files, entry)
	}
	return files, nil
}

// Copy duplicates sourceKey to destKey. When metadata is non-nil the copy
// replaces the object metadata instead of carrying the source's.
func (c *Client) Copy(ctx context.Context, sourceKey, destKey string, metadata map[string]string) (bool, error) {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(url.PathEscape(c.bucket + "/" + sourceKey)),
	}
	if metadata != nil {
		input.Metadata = metadata
		input.MetadataDirective = s3types.MetadataDirectiveReplace
	}

	if _, err := c.api.CopyObject(ctx, input); err != nil {
		return false, c.mapAPIError("copy", err)
	}
	telemetry.Info("r2.copied", map[string]any{"from": sourceKey, "to": destKey})
	return true, nil
}

// BucketInfo reports the bucket's region and reachability.
type BucketInfo struct {
	Bucket     string
	Region     string
	Accessible bool
}

// GetBucketInfo queries bucket location and touches the listing to confirm
// access.
func (c *Client) GetBucketInfo(ctx context.Context) (BucketInfo, error) {
	out, err := c.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return BucketInfo{}, c.mapAPIError("bucket location", err)
	}

	if _, err := c.ListFiles(ctx, "", 1); err != nil {
		return BucketInfo{}, err
	}

	region := string(out.LocationConstraint)
	if region == "" {
		region = "auto"
	}
	return BucketInfo{Bucket: c.bucket, Region: region, Accessible: true}, nil
}

func trimETag(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}
