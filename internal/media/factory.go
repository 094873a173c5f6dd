package media

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"socialsync/internal/config"
)

// NewUploader picks the image host configured by UPLOAD_BACKEND.
func NewUploader(ctx context.Context, cfg *config.Config, log *zap.Logger) (Uploader, error) {
	switch cfg.UploadBackend {
	case config.UploadBackendS3:
		return NewS3Uploader(ctx, cfg)
	case config.UploadBackendMinio:
		return NewMinioUploader(cfg)
	case config.UploadBackendHTTP, "":
		return NewHTTPUploader(cfg.UploadURL, cfg.HTTPTimeout, log)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}
