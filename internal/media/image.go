package media

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"socialsync/internal/model"
)

// Normalize checks size and type, then shrinks the image so its longest edge is at most
// maxEdge and re-encodes it as JPEG. Images already within bounds are still re-encoded
// so that EXIF orientation is applied and metadata is stripped.
func Normalize(data []byte, maxEdge int) ([]byte, error) {
	if int64(len(data)) > model.MaxImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}
	contentType := DetectContentType(data)
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		if b.Dx() >= b.Dy() {
			img = imaging.Resize(img, maxEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeAvatar center-crops to a square avatar.
func NormalizeAvatar(data []byte) ([]byte, error) {
	if int64(len(data)) > model.MaxImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}
	if !model.IsAllowedImageType(DetectContentType(data)) {
		return nil, model.ErrInvalidImageType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	square := imaging.Fill(img, model.AvatarEdge, model.AvatarEdge, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DetectContentType sniffs the image type from its first bytes.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}
