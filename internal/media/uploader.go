package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"socialsync/internal/model"
)

// Uploader hosts a prepared JPEG and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (*model.UploadResult, error)
}

// objectKey names a new upload.
func objectKey() string {
	return fmt.Sprintf("%s/%s%s", model.ImageFolder, uuid.NewString(), model.ImageExt)
}

// HTTPUploader posts the image as a multipart form to an image-hosting endpoint
// that answers with {"url": "..."}.
type HTTPUploader struct {
	endpoint   string
	field      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPUploader(endpoint string, timeout time.Duration, log *zap.Logger) (*HTTPUploader, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("missing upload endpoint")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPUploader{
		endpoint:   endpoint,
		field:      "image",
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("uploader"),
	}, nil
}

func (u *HTTPUploader) Upload(ctx context.Context, data []byte) (*model.UploadResult, error) {
	startTime := time.Now()
	key := objectKey()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile(u.field, key[strings.LastIndex(key, "/")+1:])
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		u.log.Warn("upload failed", zap.Error(err))
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.log.Warn("upload rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("upload image: status=%d", resp.StatusCode)
	}

	var out struct {
		URL       string `json:"url"`
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	url := out.SecureURL
	if url == "" {
		url = out.URL
	}
	if url == "" {
		return nil, fmt.Errorf("upload response has no url")
	}

	u.log.Debug("upload ok", zap.String("url", url), zap.Duration("duration", time.Since(startTime)))
	return &model.UploadResult{URL: url}, nil
}
