package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/storage"
)

type storedObject struct {
	body        []byte
	contentType string
	modified    time.Time
}

// fakeBucket backs both the S3 API and the uploader with a map.
type fakeBucket struct {
	s3iface.S3API
	objects map[string]storedObject
	deleted []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]storedObject{}}
}

func notFound(code string) error {
	return awserr.NewRequestFailure(awserr.New(code, "not found", nil), http.StatusNotFound, "req-1")
}

func (f *fakeBucket) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeBucket) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = storedObject{
		body:        body,
		contentType: aws.StringValue(in.ContentType),
		modified:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return &s3manager.UploadOutput{}, nil
}

func (f *fakeBucket) GetObjectWithContext(_ aws.Context, in *awss3.GetObjectInput, _ ...request.Option) (*awss3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, notFound(awss3.ErrCodeNoSuchKey)
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}

func (f *fakeBucket) HeadObjectWithContext(_ aws.Context, in *awss3.HeadObjectInput, _ ...request.Option) (*awss3.HeadObjectOutput, error) {
	obj, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, notFound("NotFound")
	}
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeBucket) DeleteObjectWithContext(_ aws.Context, in *awss3.DeleteObjectInput, _ ...request.Option) (*awss3.DeleteObjectOutput, error) {
	key := aws.StringValue(in.Key)
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return &awss3.DeleteObjectOutput{}, nil
}

func TestClient_RoundTripWithPrefix(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	client := NewClientWithAPI(bucket, bucket, "books", "/library/")

	require.NoError(t, client.Upload(ctx, "ebooks/a.pdf", strings.NewReader("%PDF"), "application/pdf"))
	require.Contains(t, bucket.objects, "library/ebooks/a.pdf")

	info, err := client.GetMetadata(ctx, "ebooks/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "ebooks/a.pdf", info.Key)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	rc, err := client.Download(ctx, "ebooks/a.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF", string(body))

	require.NoError(t, client.Delete(ctx, "ebooks/a.pdf"))
	assert.Equal(t, []string{"library/ebooks/a.pdf"}, bucket.deleted)

	exists, err := client.Exists(ctx, "ebooks/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_MissingObject(t *testing.T) {
	bucket := newFakeBucket()
	client := NewClientWithAPI(bucket, bucket, "books", "")

	_, err := client.Download(context.Background(), "ebooks/missing.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = client.GetMetadata(context.Background(), "ebooks/missing.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClient_RejectsInvalidKey(t *testing.T) {
	bucket := newFakeBucket()
	client := NewClientWithAPI(bucket, bucket, "books", "")

	err := client.Upload(context.Background(), "../x", strings.NewReader(""), "")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
	assert.Empty(t, bucket.objects)
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := NewClient(config.Storage{Provider: config.StorageProviderS3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(notFound("NotFound")))
	assert.True(t, isNotFound(awserr.New(awss3.ErrCodeNoSuchKey, "gone", nil)))
	assert.False(t, isNotFound(awserr.NewRequestFailure(awserr.New("AccessDenied", "no", nil), http.StatusForbidden, "r")))
}
