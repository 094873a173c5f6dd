package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"socialsync/internal/config"
	"socialsync/internal/model"
)

// S3Uploader puts images into an S3-compatible bucket (Cloudflare R2).
type S3Uploader struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewS3Uploader constructs an S3-compatible client for Cloudflare R2.
func NewS3Uploader(ctx context.Context, cfg *config.Config) (*S3Uploader, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Uploader{
		s3Client:  s3Client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, data []byte) (*model.UploadResult, error) {
	key := objectKey()
	_, err := u.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.ImageCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}
	return &model.UploadResult{URL: u.publicURL + "/" + key, Key: key}, nil
}
