package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore persists produced binary artifacts (images) and hands back
// a retrieval URL for each one.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore implements ArtifactStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
// urlExpiry bounds the lifetime of returned artifact URLs; zero picks the
// presign maximum of seven days.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, urlExpiry time.Duration) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	if urlExpiry <= 0 || urlExpiry > 7*24*time.Hour {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &MinioStore{client: client, bucket: bucket, urlExpiry: urlExpiry}, nil
}

// Save uploads an artifact and returns its retrieval URL.
func (m *MinioStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign artifact: %w", err)
	}
	return url.String(), nil
}

// Delete removes an artifact.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
