package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"socialsync/internal/gateway"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

// Error codes specific to uploads
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeBanned           = "ACCOUNT_BANNED"
)

// writeError maps a failed action onto the local API error body. Backend
// failures keep the backend's message so callers can show it as is.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var (
		validation *model.ValidationError
		reqErr     *gateway.RequestError
	)
	switch {
	case errors.As(err, &validation):
		httputil.WriteError(w, http.StatusBadRequest, httputil.ErrCodeValidation, validation.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "Invalid email or password")
	case errors.Is(err, model.ErrNoSession):
		httputil.WriteUnauthorized(w, "Not logged in")
	case errors.Is(err, model.ErrBanned):
		httputil.WriteError(w, http.StatusForbidden, CodeBanned, "Your account has been banned")
	case errors.Is(err, model.ErrNotAlbumOwner):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, model.ErrAlreadyDecided):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, CodeFileTooLarge, "Image exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.As(err, &reqErr):
		writeUpstream(w, log, op, reqErr)
	case errors.Is(err, model.ErrNotFound):
		httputil.WriteNotFound(w, "Not found")
	default:
		log.Error("request failed", zap.String("op", op), zap.Error(err))
		httputil.WriteInternalError(w, "Something went wrong")
	}
}

func writeUpstream(w http.ResponseWriter, log *zap.Logger, op string, e *gateway.RequestError) {
	log.Warn("backend call failed", zap.String("op", op), zap.Int("status", e.StatusCode), zap.Error(e))
	switch {
	case e.Transport:
		httputil.WriteError(w, http.StatusBadGateway, httputil.ErrCodeUnavailable, e.UserMessage())
	case e.StatusCode == http.StatusUnauthorized:
		httputil.WriteUnauthorized(w, e.UserMessage())
	case e.StatusCode == http.StatusNotFound:
		httputil.WriteNotFound(w, e.UserMessage())
	case e.StatusCode >= 400 && e.StatusCode < 500:
		httputil.WriteError(w, e.StatusCode, httputil.ErrCodeUpstream, e.UserMessage())
	default:
		httputil.WriteError(w, http.StatusBadGateway, httputil.ErrCodeUpstream, e.UserMessage())
	}
}
