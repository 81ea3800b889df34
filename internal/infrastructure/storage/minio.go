package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"receipt-service/internal/config"
)

// UploadOptions mirrors the artifact-store capability: a folder, a stable
// public id and audit tags. Objects are private; access goes through
// signed URLs only.
type UploadOptions struct {
	Folder   string
	PublicID string
	Tags     []string
}

type UploadResult struct {
	PublicID  string
	URL       string
	SecureURL string
	Bytes     int64
}

// CloudStorage is the artifact-store capability the upload worker and the
// admin surface depend on.
type CloudStorage interface {
	UploadFile(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error)
	SignedURL(ctx context.Context, publicID string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// MinIOStorage implements CloudStorage against a MinIO/S3 bucket.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	secure bool
}

func NewMinIOStorage(cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
		secure: cfg.UseSSL,
	}, nil
}

var _ CloudStorage = (*MinIOStorage)(nil)

// UploadFile uploads a local file under <folder>/<publicID>.
// The returned PublicID is the full object key; downstream callers pass it
// back to SignedURL and Delete unchanged.
func (s *MinIOStorage) UploadFile(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read local file: %w", err)
	}

	key := opts.PublicID
	if opts.Folder != "" {
		key = strings.TrimSuffix(opts.Folder, "/") + "/" + opts.PublicID
	}

	putOpts := minio.PutObjectOptions{
		ContentType: "application/pdf",
	}
	if len(opts.Tags) > 0 {
		putOpts.UserTags = make(map[string]string, len(opts.Tags))
		for _, tag := range opts.Tags {
			putOpts.UserTags[tag] = "1"
		}
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to minio: %w", err)
	}

	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	objectURL := fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key)

	return &UploadResult{
		PublicID:  key,
		URL:       objectURL,
		SecureURL: objectURL,
		Bytes:     info.Size,
	}, nil
}

// SignedURL returns a presigned GET URL for an authenticated download.
func (s *MinIOStorage) SignedURL(ctx context.Context, publicID string, expiry time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, publicID, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object url: %w", err)
	}
	return signed.String(), nil
}

func (s *MinIOStorage) Delete(ctx context.Context, publicID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
