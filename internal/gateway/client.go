package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"socialsync/internal/model"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 * 1024 * 1024

// Client is the stateless gateway to the backend REST API.
// Every call is a fresh round trip: no retries, no caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient validates baseURL and builds a client. A zero timeout keeps the
// platform default behaviour (no client-side deadline).
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, &RequestError{Op: "create gateway client", Err: errors.New("api base url is empty")}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &RequestError{Op: "parse api base url", Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &RequestError{Op: "validate api base url", Err: fmt.Errorf("invalid api base url: %s", trimmed)}
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("gateway"),
	}, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DoJSON sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("marshal request body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	status, data, err := c.do(ctx, method, path, token, "application/json", body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Op: op, StatusCode: status, Code: CodeInvalidPayload, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader) (int, []byte, error) {
	if c == nil || c.httpClient == nil {
		return 0, nil, &RequestError{Op: "do request", Err: errors.New("gateway client is not initialized")}
	}
	if strings.TrimSpace(method) == "" {
		method = http.MethodGet
	}
	op := method + " " + path
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return 0, nil, &RequestError{Op: op, Err: err}
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("op", op), zap.Duration("duration", time.Since(startTime)), zap.Error(err))
		return 0, nil, &RequestError{Op: op, Transport: true, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return resp.StatusCode, nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Transport: true, Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := statusError(op, resp.StatusCode, data)
		c.log.Warn("request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", reqErr.Code),
			zap.Duration("duration", time.Since(startTime)))
		return resp.StatusCode, data, reqErr
	}

	c.log.Debug("request ok", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(startTime)))
	return resp.StatusCode, data, nil
}

func (c *Client) resolve(path string) string {
	trimmed := strings.TrimSpace(path)
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return c.baseURL + trimmed
}

// validator is implemented by every model record returned by the backend.
type validator interface {
	Validate() error
}

// getOne decodes a single record and validates it at the boundary.
func getOne[T any, PT interface {
	*T
	validator
}](ctx context.Context, c *Client, method, path, token string, in interface{}) (*T, error) {
	var out T
	if err := c.DoJSON(ctx, method, path, token, in, &out); err != nil {
		return nil, err
	}
	if err := PT(&out).Validate(); err != nil {
		return nil, invalidPayload(method+" "+path, err)
	}
	return &out, nil
}

// getList decodes a list of records and validates each one.
func getList[T any, PT interface {
	*T
	validator
}](ctx context.Context, c *Client, path, token string) ([]T, error) {
	var out []T
	if err := c.DoJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := PT(&out[i]).Validate(); err != nil {
			return nil, invalidPayload("GET "+path, err)
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func invalidPayload(op string, err error) error {
	return &RequestError{Op: op, StatusCode: http.StatusOK, Code: CodeInvalidPayload, Err: fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)}
}

// IsTransport reports whether err is a network/transport failure (taxonomy a).
func IsTransport(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Transport
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func escape(id string) string {
	return url.PathEscape(id)
}
