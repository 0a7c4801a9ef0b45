// Package blob implements the C10 blob store adapter (spec.md §3,
// §4.10): the opaque bytes behind an Embedding's vector_uri and an
// opportunity's source documents. The match engine only ever holds a
// read-only reference into this store (an "Opportunity"/"Embedding"
// owns a vector_uri, not the bytes themselves); this package is the
// one place that actually touches them.
//
// Grounded on Klukvas-Jobber/be's internal/platform/storage/s3.go: the
// same aws-sdk-go-v2 S3 client construction and presigned-URL pattern,
// repurposed from document uploads to opportunity/embedding artifacts.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("blob: object not found")

// Store is the blob store adapter. Opportunity documents and
// embedding artifacts are addressed by an opaque key (the vector_uri /
// document reference carried on the owning entity).
type Store interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// PresignedUploadURL / PresignedDownloadURL let callers (e.g. the
	// document ingestion pipeline, out of scope per spec.md §1) hand
	// out direct-to-storage URLs instead of proxying bytes through
	// this service.
	PresignedUploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// S3Store implements Store over an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store wraps an already-configured s3.Client for bucket.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key string, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("blob: put %q: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("blob: get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("blob: read %q: %w", key, err)
	}
	return data, nil
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("blob: delete %q: %w", key, err)
	}
	return nil
}

// Exists implements Store.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// PresignedUploadURL implements Store.
func (s *S3Store) PresignedUploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	presign := s3.NewPresignClient(s.client)
	req, err := presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) { o.Expires = expiry })
	if err != nil {
		return "", fmt.Errorf("blob: presign upload %q: %w", key, err)
	}
	return req.URL, nil
}

// PresignedDownloadURL implements Store.
func (s *S3Store) PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presign := s3.NewPresignClient(s.client)
	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = expiry })
	if err != nil {
		return "", fmt.Errorf("blob: presign download %q: %w", key, err)
	}
	return req.URL, nil
}
