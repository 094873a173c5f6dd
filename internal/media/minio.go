package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"socialsync/internal/config"
	"socialsync/internal/model"
)

// MinioUploader puts images into a self-hosted MinIO bucket.
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string

	ensureOnce sync.Once
	ensureErr  error
}

func NewMinioUploader(cfg *config.Config) (*MinioUploader, error) {
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("missing minio configuration")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	publicURL := strings.TrimSuffix(cfg.MinioPublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}

	return &MinioUploader{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: publicURL,
	}, nil
}

func (u *MinioUploader) ensureBucket(ctx context.Context) error {
	u.ensureOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.ensureErr = err
			return
		}
		if !exists {
			u.ensureErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{})
		}
	})
	if u.ensureErr != nil {
		return fmt.Errorf("ensure bucket %q: %w", u.bucket, u.ensureErr)
	}
	return nil
}

func (u *MinioUploader) Upload(ctx context.Context, data []byte) (*model.UploadResult, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return nil, err
	}

	key := objectKey()
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  model.ContentTypeJPEG,
		CacheControl: model.ImageCacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &model.UploadResult{URL: u.publicURL + "/" + key, Key: key}, nil
}
