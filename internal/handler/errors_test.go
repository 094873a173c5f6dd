package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"socialsync/internal/gateway"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        &model.ValidationError{Field: "text", Reason: "required"},
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeValidation,
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("create post: %w", &model.ValidationError{Field: "content", Reason: "too long"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeValidation,
		},
		{
			name:       "invalid credentials",
			err:        model.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   httputil.ErrCodeUnauthorized,
		},
		{
			name:       "no session",
			err:        model.ErrNoSession,
			wantStatus: http.StatusUnauthorized,
			wantCode:   httputil.ErrCodeUnauthorized,
		},
		{
			name:       "banned by backend",
			err:        &gateway.RequestError{Op: "get feed", StatusCode: http.StatusForbidden, Code: "ACCOUNT_BANNED"},
			wantStatus: http.StatusForbidden,
			wantCode:   CodeBanned,
		},
		{
			name:       "not album owner",
			err:        model.ErrNotAlbumOwner,
			wantStatus: http.StatusForbidden,
			wantCode:   httputil.ErrCodeForbidden,
		},
		{
			name:       "already decided",
			err:        model.ErrAlreadyDecided,
			wantStatus: http.StatusConflict,
			wantCode:   httputil.ErrCodeConflict,
		},
		{
			name:       "invalid image",
			err:        fmt.Errorf("normalize: %w", model.ErrInvalidImageType),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidImageType,
		},
		{
			name:       "backend unreachable",
			err:        &gateway.RequestError{Op: "get feed", Transport: true, Err: errors.New("dial tcp: refused")},
			wantStatus: http.StatusBadGateway,
			wantCode:   httputil.ErrCodeUnavailable,
			wantMsg:    "Network error. Please check your connection.",
		},
		{
			name:       "backend 400 keeps its message",
			err:        &gateway.RequestError{Op: "create post", StatusCode: http.StatusBadRequest, Message: "Content is required"},
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeUpstream,
			wantMsg:    "Content is required",
		},
		{
			name:       "backend 404",
			err:        &gateway.RequestError{Op: "get post", StatusCode: http.StatusNotFound},
			wantStatus: http.StatusNotFound,
			wantCode:   httputil.ErrCodeNotFound,
		},
		{
			name:       "backend 500",
			err:        &gateway.RequestError{Op: "get post", StatusCode: http.StatusInternalServerError},
			wantStatus: http.StatusBadGateway,
			wantCode:   httputil.ErrCodeUpstream,
		},
		{
			name:       "local not found",
			err:        model.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   httputil.ErrCodeNotFound,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   httputil.ErrCodeInternal,
			wantMsg:    "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), "test", tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body httputil.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && body.Error.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", body.Error.Message, tt.wantMsg)
			}
		})
	}
}
