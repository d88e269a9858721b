package r2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeObject is one stored object inside the in-memory backend.
type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// fakeS3 is an in-memory s3API with call counters and failure injection.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	putCalls      int
	headCalls     int
	getCalls      int
	deleteCalls   int
	createCalls   int
	partCalls     int
	completeCalls int
	abortCalls    int

	// partNumbers records every UploadPart call in order.
	partNumbers []int32
	// completedParts captures the parts list passed to the finalize call.
	completedParts []s3types.CompletedPart

	putErr      error
	failAtPart  int32
	completeErr error
	// stripDigestEcho drops metadata from HeadObject responses.
	stripDigestEcho bool
	// corruptMetaKey overwrites this metadata key in HeadObject responses.
	corruptMetaKey string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func newTestClient(api s3API, presign presignAPI) *Client {
	return &Client{api: api, presign: presign, bucket: "test-bucket"}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, apiError("NotFound")
	}

	meta := map[string]string{}
	for k, v := range obj.metadata {
		meta[k] = v
	}
	if f.stripDigestEcho {
		meta = map[string]string{}
	}
	if f.corruptMetaKey != "" {
		meta[f.corruptMetaKey] = "corrupted"
	}

	now := time.Now()
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(`"fake-etag"`),
		LastModified:  &now,
		Metadata:      meta,
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, apiError("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	putErr := f.putErr
	f.putCalls++
	f.mu.Unlock()

	if putErr != nil {
		return nil, putErr
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = fakeObject{
		data:        data,
		contentType: aws.ToString(params.ContentType),
		metadata:    params.Metadata,
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"fake-etag"`)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &s3.DeleteObjectsOutput{}
	for _, obj := range params.Delete.Objects {
		key := aws.ToString(obj.Key)
		delete(f.objects, key)
		out.Deleted = append(out.Deleted, s3types.DeletedObject{Key: aws.String(key)})
	}
	return out, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &s3.ListObjectsV2Output{}
	prefix := aws.ToString(params.Prefix)
	for key, obj := range f.objects {
		if prefix != "" && !bytes.HasPrefix([]byte(key), []byte(prefix)) {
			continue
		}
		now := time.Now()
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			ETag:         aws.String(`"fake-etag"`),
			LastModified: &now,
		})
	}
	return out, nil
}

func (f *fakeS3) CopyObject(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) GetBucketLocation(_ context.Context, _ *s3.GetBucketLocationInput, _ ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{}, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	f.mu.Lock()
	f.partCalls++
	num := aws.ToInt32(params.PartNumber)
	f.partNumbers = append(f.partNumbers, num)
	failAt := f.failAtPart
	f.mu.Unlock()

	if failAt != 0 && num == failAt {
		return nil, apiError("InvalidPart")
	}

	// Drain the part body so sequential reads stay aligned.
	if _, err := io.Copy(io.Discard, params.Body); err != nil {
		return nil, err
	}
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"etag-%d"`, num))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completedParts = append([]s3types.CompletedPart(nil), params.MultipartUpload.Parts...)
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortCalls++
	return &s3.AbortMultipartUploadOutput{}, nil
}

// fakePresign counts signer invocations so tests can assert validation
// happens before any backend call.
type fakePresign struct {
	mu       sync.Mutex
	getCalls int
	putCalls int
}

func (f *fakePresign) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return &v4.PresignedHTTPRequest{
		URL: "https://signed.example.com/" + aws.ToString(params.Key),
	}, nil
}

func (f *fakePresign) PresignPutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	return &v4.PresignedHTTPRequest{
		URL: "https://signed.example.com/" + aws.ToString(params.Key),
	}, nil
}

// zeroReader is a seekable stream of zero bytes of a fixed size, letting
// tests exercise large-object paths without allocating the payload.
type zeroReader struct {
	size int64
	pos  int64
}

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.pos >= z.size {
		return 0, io.EOF
	}
	n := int64(len(p))
	if remaining := z.size - z.pos; remaining < n {
		n = remaining
	}
	for i := int64(0); i < n; i++ {
		p[i] = 0
	}
	z.pos += n
	return int(n), nil
}

func (z *zeroReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		z.pos = offset
	case io.SeekCurrent:
		z.pos += offset
	case io.SeekEnd:
		z.pos = z.size + offset
	}
	if z.pos < 0 {
		return 0, fmt.Errorf("negative position")
	}
	return z.pos, nil
}
