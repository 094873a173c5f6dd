package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/httputil"
	"socialsync/internal/viewmodel"
)

type PostHandler struct {
	app  *app.App
	live *Live
	log  *zap.Logger
}

func NewPostHandler(a *app.App, live *Live, log *zap.Logger) *PostHandler {
	return &PostHandler{app: a, live: live, log: log.Named("post")}
}

type reportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// GetByID handles GET /post/{id}
// The feed's live copy wins; posts outside the feed are fetched.
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if feed, err := h.live.Feed(r.Context()); err == nil {
		if p, ok := feed.Post(postID); ok {
			httputil.WriteJSON(w, http.StatusOK, p)
			return
		}
	}
	p, err := h.app.Post(r.Context(), postID)
	if err != nil {
		writeError(w, h.log, "get post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// Like handles POST /post/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.withFeed(w, r, "like post", func(f *viewmodel.Feed, postID string) error {
		return f.Like(r.Context(), postID)
	})
}

// Unlike handles DELETE /post/{id}/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.withFeed(w, r, "unlike post", func(f *viewmodel.Feed, postID string) error {
		return f.Unlike(r.Context(), postID)
	})
}

// Delete handles DELETE /post/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withFeed(w, r, "delete post", func(f *viewmodel.Feed, postID string) error {
		return f.DeletePost(r.Context(), postID)
	})
}

// Report handles POST /post/{id}/report
func (h *PostHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	h.withFeed(w, r, "report post", func(f *viewmodel.Feed, postID string) error {
		return f.Report(r.Context(), postID, req.Reason, req.Details)
	})
}

// withFeed runs an action against the live feed and answers with the post's
// state afterwards, or a message when the post is gone.
func (h *PostHandler) withFeed(w http.ResponseWriter, r *http.Request, op string, fn func(*viewmodel.Feed, string) error) {
	postID := chi.URLParam(r, "id")
	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	if err := fn(feed, postID); err != nil {
		writeError(w, h.log, op, err)
		return
	}
	if p, ok := feed.Post(postID); ok {
		httputil.WriteJSON(w, http.StatusOK, p)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "OK")
}
