package data

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	pkgminio "github.com/lk2023060901/filevault/internal/pkg/minio"
)

// MinIOBlobStore implements biz.BlobStore on top of S3-compatible object
// storage. Puts are idempotent: re-uploading identical bytes under the
// same key overwrites with the same content. The dedup decision itself
// lives in the metadata store, not here.
type MinIOBlobStore struct {
	client  *pkgminio.Client
	bucket  string
	baseURL string
}

// NewMinIOBlobStore creates the blob store adapter. baseURL is the
// public endpoint used to build durable object locators.
func NewMinIOBlobStore(client *pkgminio.Client, bucket, baseURL string) *MinIOBlobStore {
	return &MinIOBlobStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put uploads a blob under key
func (s *MinIOBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), pkgminio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

// PresignDownload issues a time-limited GET URL for key; expiry is
// enforced by the object store
func (s *MinIOBlobStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return u.String(), nil
}

// ObjectURL returns the durable, credential-free locator for key
func (s *MinIOBlobStore) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
}
