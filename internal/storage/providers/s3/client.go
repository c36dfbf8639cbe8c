// Package s3 stores objects in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	log "github.com/sirupsen/logrus"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/storage"
)

// Client implements storage.Client on top of an S3 bucket
type Client struct {
	api      s3iface.S3API
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

var _ storage.Client = (*Client)(nil)

// NewClient builds an AWS session from the storage config. Credentials come
// from the default provider chain (environment, shared config, instance role).
func NewClient(cfg config.Storage) (*Client, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 storage provider")
	}
	awsCfg := &aws.Config{
		Region:     aws.String(cfg.S3Region),
		MaxRetries: aws.Int(3),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	log.WithFields(log.Fields{
		"bucket":   cfg.S3Bucket,
		"region":   cfg.S3Region,
		"endpoint": cfg.S3Endpoint,
	}).Info("Using S3 storage")

	return NewClientWithAPI(awss3.New(sess), s3manager.NewUploader(sess), cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewClientWithAPI wires explicit S3 and uploader implementations.
func NewClientWithAPI(api s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, prefix string) *Client {
	return &Client{
		api:      api,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (c *Client) objectKey(key string) (string, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if c.prefix == "" {
		return cleaned, nil
	}
	return path.Join(c.prefix, cleaned), nil
}

func (c *Client) Upload(ctx context.Context, key string, content io.Reader, contentType string) error {
	objectKey, err := c.objectKey(key)
	if err != nil {
		return err
	}
	input := &s3manager.UploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
		Body:   content,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := c.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := c.api.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return out.Body, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	objectKey, err := c.objectKey(key)
	if err != nil {
		return err
	}
	_, err = c.api.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.GetMetadata(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Client) GetMetadata(ctx context.Context, key string) (*storage.FileInfo, error) {
	objectKey, err := c.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := c.api.HeadObjectWithContext(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return &storage.FileInfo{
		Key:         key,
		Size:        aws.Int64Value(out.ContentLength),
		ContentType: aws.StringValue(out.ContentType),
		ModifiedAt:  aws.TimeValue(out.LastModified),
	}, nil
}

// isNotFound covers both GET (NoSuchKey) and HEAD (bare 404 without a body).
func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case awss3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
