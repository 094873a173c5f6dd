package model

import "errors"

const (
	MaxImageSizeBytes = 10 * 1024 * 1024 // 10MB before client-side normalization
	MaxImageEdge      = 1600
	AvatarEdge        = 400
	ImageFolder       = "uploads"
	ImageExt          = ".jpg"
	ImageCacheControl = "public, max-age=31536000" // 1 year
	MaxGallerySlots   = 6
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)

// UploadResult is the hosted location of an uploaded image.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
