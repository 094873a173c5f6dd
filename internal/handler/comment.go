package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

type CommentHandler struct {
	live *Live
	log  *zap.Logger
}

func NewCommentHandler(live *Live, log *zap.Logger) *CommentHandler {
	return &CommentHandler{live: live, log: log.Named("comment")}
}

// Create handles POST /post/{id}/comment
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	comment, err := feed.Comment(r.Context(), postID, req.Text)
	if err != nil {
		writeError(w, h.log, "create comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /post/{id}/comment/{commentId}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	if err := feed.DeleteComment(r.Context(), postID, commentID); err != nil {
		writeError(w, h.log, "delete comment", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Comment deleted")
}

// Update handles PUT /post/{id}/comment/{commentId}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	comment, err := feed.EditComment(r.Context(), postID, commentID, req.Text)
	if err != nil {
		writeError(w, h.log, "edit comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}
