// Package r2 implements the remote object-store client for an S3-compatible
// bucket (Cloudflare R2). It owns transfer strategy selection, multipart
// sessions, presigned URLs, deletion, listing and integrity verification,
// and translates backend failures into the storage error taxonomy.
package r2

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// Transfer limits imposed by the backend.
const (
	multipartThreshold = 100 << 20 // switch to multipart at 100 MiB
	minPartSize        = 5 << 20   // backend minimum part size
	maxPartSize        = 5 << 30   // backend maximum part size
	maxParts           = 10000     // backend maximum parts per upload
	maxFileSize        = 5 << 30   // backend per-object ceiling

	maxBatchUploads = 100
	maxBatchDeletes = 1000
	maxListKeys     = 1000
	maxPresignTTL   = 7 * 24 * time.Hour

	defaultUploadWorkers = 5
	retryMaxAttempts     = 3
)

// s3API is the subset of the S3 client the storage core calls. *s3.Client
// satisfies it; tests substitute a fake.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// presignAPI is the signing subset used for URL generation.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config carries the credentials and bucket identity for the remote store.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string

	// RequireDigestEcho fails integrity-checked uploads when the backend does
	// not echo the stored digest back in object metadata.
	RequireDigestEcho bool
}

// Client is the remote object-store client. It is constructed once at startup
// and shared read-only across all concurrent operations.
type Client struct {
	api               s3API
	presign           presignAPI
	bucket            string
	requireDigestEcho bool
}

// New builds a Client from config. The endpoint is derived from the account
// id; requests use path-style addressing and static credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	missing := []string{}
	if strings.TrimSpace(cfg.AccountID) == "" {
		missing = append(missing, "account id")
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" {
		missing = append(missing, "access key")
	}
	if strings.TrimSpace(cfg.SecretAccessKey) == "" {
		missing = append(missing, "secret key")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		missing = append(missing, "bucket name")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required R2 configuration: %s", strings.Join(missing, ", "))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(retryMaxAttempts),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Client{
		api:               client,
		presign:           s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		requireDigestEcho: cfg.RequireDigestEcho,
	}, nil
}

// VerifyConnection checks that the configured bucket exists and is reachable
// with the supplied credentials. Called once at startup; failure is fatal.
func (c *Client) VerifyConnection(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		switch errorCode(err) {
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("bucket %q does not exist", c.bucket)
		case "AccessDenied":
			return fmt.Errorf("access denied to bucket %q, check API token permissions", c.bucket)
		}
		return fmt.Errorf("verify bucket %q: %w", c.bucket, err)
	}
	telemetry.Info("r2.connected", map[string]any{"bucket": c.bucket})
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// errorMessages maps backend error codes to stable human-readable messages.
var errorMessages = map[string]string{
	"AccessDenied":          "insufficient permissions for storage operation",
	"SignatureDoesNotMatch": "invalid credentials or endpoint configuration",
	"InvalidRequest":        "invalid request parameters",
	"NoSuchBucket":          "storage bucket does not exist",
	"NoSuchKey":             "requested object does not exist",
	"EntityTooLarge":        "object size exceeds the 5 GiB backend limit",
	"InvalidPart":           "invalid multipart upload part",
	"InvalidPartOrder":      "multipart upload parts not in correct order",
}

// mapAPIError wraps a backend failure into the stable upload-error taxonomy.
func (c *Client) mapAPIError(op string, err error) error {
	code := errorCode(err)
	msg, ok := errorMessages[code]
	if !ok {
		if code == "" {
			msg = fmt.Sprintf("storage %s failed", op)
		} else {
			msg = fmt.Sprintf("storage error: %s", code)
		}
	}
	telemetry.Error("r2.api_error", map[string]any{
		"op":    op,
		"code":  code,
		"error": err.Error(),
	})
	return &object.UploadError{Code: code, Message: msg, Err: err}
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFound(err error) bool {
	switch errorCode(err) {
	case "NoSuchKey", "NotFound", "404":
		return true
	}
	return false
}
