package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/httputil"
	"socialsync/internal/model"
	"socialsync/internal/viewmodel"
)

type ChatHandler struct {
	live *Live
	log  *zap.Logger
}

func NewChatHandler(live *Live, log *zap.Logger) *ChatHandler {
	return &ChatHandler{live: live, log: log.Named("chat")}
}

type inboxResponse struct {
	Conversations []model.Conversation `json:"conversations"`
	TotalUnread   int                  `json:"totalUnread"`
}

type threadResponse struct {
	CounterpartID string                             `json:"counterpartId"`
	Messages      []model.Message                    `json:"messages"`
	PeerTyping    bool                               `json:"peerTyping"`
	AlbumRequests map[string]model.AlbumAccessStatus `json:"albumRequests"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

type albumDecisionRequest struct {
	Status model.AlbumAccessStatus `json:"status"`
}

func threadBody(c *viewmodel.ChatThread) threadResponse {
	msgs := c.Messages()
	albums := make(map[string]model.AlbumAccessStatus)
	for _, m := range msgs {
		if m.Type != model.MessageTypeAlbumAccessRequest || m.RelatedID == "" {
			continue
		}
		if r, ok := c.AlbumRequest(m.RelatedID); ok {
			albums[m.RelatedID] = r.Status()
		}
	}
	return threadResponse{
		CounterpartID: c.CounterpartID(),
		Messages:      msgs,
		PeerTyping:    c.PeerTyping(),
		AlbumRequests: albums,
	}
}

// Inbox handles GET /chat
func (h *ChatHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	convs, err := h.live.Conversations(r.Context())
	if err != nil {
		writeError(w, h.log, "load conversations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inboxResponse{Conversations: convs.Items(), TotalUnread: convs.TotalUnread()})
}

// Thread handles GET /chat/{id}
// Opening a thread makes it the active one, so its messages stop counting as unread.
func (h *ChatHandler) Thread(w http.ResponseWriter, r *http.Request) {
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, threadBody(c))
}

// Send handles POST /chat/{id}/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	c, ok := h.thread(w, r)
	if !ok {
		return
	}

	var (
		msg *model.Message
		err error
	)
	if img := strings.TrimSpace(req.Image); img != "" {
		msg, err = c.SendImage(r.Context(), img, req.Content)
	} else {
		msg, err = c.Send(r.Context(), req.Content)
	}
	if err != nil {
		writeError(w, h.log, "send message", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// DeleteMessage handles DELETE /chat/{id}/messages/{messageId}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	if err := c.Delete(r.Context(), chi.URLParam(r, "messageId")); err != nil {
		writeError(w, h.log, "delete message", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Message deleted")
}

// MarkRead handles POST /chat/{id}/read
// Clears both the thread's read flags and the inbox badge.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	if inbox := h.live.Inbox(); inbox != nil {
		if err := inbox.MarkRead(r.Context(), c.CounterpartID()); err != nil {
			writeError(w, h.log, "mark conversation read", err)
			return
		}
	}
	if err := c.MarkRead(r.Context()); err != nil {
		writeError(w, h.log, "mark thread read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, threadBody(c))
}

// Typing handles POST /chat/{id}/typing
// Body {"typing": false} stops the indicator; anything else is a keystroke.
func (h *ChatHandler) Typing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Typing *bool `json:"typing"`
	}
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	if req.Typing != nil && !*req.Typing {
		c.StopTyping()
	} else {
		c.Typing()
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestAlbumAccess handles POST /chat/{id}/album-access
func (h *ChatHandler) RequestAlbumAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	req, err := c.RequestAlbumAccess(r.Context())
	if err != nil {
		writeError(w, h.log, "request album access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

// RespondAlbumAccess handles POST /chat/{id}/album-access/{requestId}
// Only the album owner may decide, and only once.
func (h *ChatHandler) RespondAlbumAccess(w http.ResponseWriter, r *http.Request) {
	var req albumDecisionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if !req.Status.ValidDecision() {
		httputil.WriteBadRequestWithCode(w, httputil.ErrCodeValidation, "status must be approved or rejected")
		return
	}
	c, ok := h.thread(w, r)
	if !ok {
		return
	}
	if err := c.RespondAlbumAccess(r.Context(), chi.URLParam(r, "requestId"), req.Status); err != nil {
		writeError(w, h.log, "respond album access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, threadBody(c))
}

func (h *ChatHandler) thread(w http.ResponseWriter, r *http.Request) (*viewmodel.ChatThread, bool) {
	c, err := h.live.Thread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "open chat", err)
		return nil, false
	}
	return c, true
}
