package handler

import (
	"net/http"

	"go.uber.org/zap"

	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

type FeedHandler struct {
	live *Live
	log  *zap.Logger
}

func NewFeedHandler(live *Live, log *zap.Logger) *FeedHandler {
	return &FeedHandler{live: live, log: log.Named("feed")}
}

type feedResponse struct {
	Posts []model.Post `json:"posts"`
}

// Get handles GET /
// Returns the live feed: approved posts minus blocked authors, newest first.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feedResponse{Posts: feed.Posts()})
}

// Create handles POST /post
// Text posts show in the feed at once; image posts after moderation.
func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePostRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	feed, err := h.live.Feed(r.Context())
	if err != nil {
		writeError(w, h.log, "load feed", err)
		return
	}
	post, err := feed.CreatePost(r.Context(), req)
	if err != nil {
		writeError(w, h.log, "create post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}
