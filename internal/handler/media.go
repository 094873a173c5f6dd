package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
	"socialsync/internal/transport/http/middleware"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

type MediaHandler struct {
	app *app.App
	log *zap.Logger
}

func NewMediaHandler(a *app.App, log *zap.Logger) *MediaHandler {
	return &MediaHandler{app: a, log: log.Named("media")}
}

// Upload handles POST /media
// Takes a multipart "image" file, normalizes it and returns the hosted URL.
// Set the form field avatar=true for a square profile picture.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxImageSizeBytes+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequestWithCode(w, CodeFileTooLarge, "Image exceeds 10MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image is required")
		return
	}
	defer file.Close()

	if header.Size > model.MaxImageSizeBytes {
		httputil.WriteBadRequestWithCode(w, CodeFileTooLarge, "Image exceeds 10MB limit")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !model.IsAllowedImageType(ct) {
		httputil.WriteBadRequestWithCode(w, CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteBadRequest(w, "Failed to read image")
		return
	}
	avatar, _ := strconv.ParseBool(r.FormValue("avatar"))

	res, err := h.app.UploadImage(r.Context(), data, avatar)
	if err != nil {
		writeError(w, h.log, "upload image", err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	h.log.Debug("image uploaded", zap.String("user_id", userID), zap.Bool("avatar", avatar), zap.String("url", res.URL))
	httputil.WriteJSON(w, http.StatusCreated, res)
}
