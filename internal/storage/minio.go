// Package storage uploads issue images to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/config"
)

// ImageStore persists uploaded images and returns a public reference.
type ImageStore interface {
	Upload(ctx context.Context, contentType string, body io.Reader, size int64) (string, error)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MinIOStore writes images into a single bucket.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	publicURL string
	secure    bool
	now       func() time.Time
}

// NewMinIOStore connects and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created image bucket", zap.String("bucket", cfg.Bucket))
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		secure:    cfg.UseSSL,
		now:       time.Now,
	}, nil
}

// Upload stores body under a fresh date-partitioned key.
func (s *MinIOStore) Upload(ctx context.Context, contentType string, body io.Reader, size int64) (string, error) {
	key := objectKey(s.now(), uuid.NewString(), contentType)
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *MinIOStore) objectURL(key string) string {
	base := strings.TrimRight(s.publicURL, "/")
	if base == "" {
		scheme := "http"
		if s.secure {
			scheme = "https"
		}
		base = scheme + "://" + s.endpoint
	}
	return base + "/" + s.bucket + "/" + key
}

func objectKey(now time.Time, id, contentType string) string {
	return path.Join("issues", now.UTC().Format("2006/01/02"), id+imageExtensions[contentType])
}

// AllowedContentType reports whether uploads of this type are accepted.
func AllowedContentType(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}
