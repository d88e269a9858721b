package r2

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gallery-backend/internal/shared/storage/object"
)

// PresignedURL returns a time-limited signed URL for the object at key.
// method is "GET" or "PUT". TTLs above seven days are rejected as validation
// errors before the signer is ever invoked.
func (c *Client) PresignedURL(ctx context.Context, key string, ttl time.Duration, method string) (string, error) {
	if ttl <= 0 {
		return "", object.NewValidationError("presigned URL expiry must be positive")
	}
	if ttl > maxPresignTTL {
		return "", object.NewValidationError("presigned URL expiry cannot exceed 7 days")
	}

	withTTL := func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	}

	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "", "GET":
		out, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}, withTTL)
		if err != nil {
			return "", c.mapAPIError("presign get", err)
		}
		return out.URL, nil
	case "PUT":
		out, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}, withTTL)
		if err != nil {
			return "", c.mapAPIError("presign put", err)
		}
		return out.URL, nil
	default:
		return "", object.NewValidationError("unsupported presign method %q", method)
	}
}
