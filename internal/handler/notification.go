package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

type NotificationHandler struct {
	live *Live
	log  *zap.Logger
}

func NewNotificationHandler(live *Live, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{live: live, log: log.Named("notification")}
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

// List handles GET /notifications
// Returns the live notification list, newest first, with the unread badge.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	n, err := h.live.Notifications(r.Context())
	if err != nil {
		writeError(w, h.log, "load notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: n.Items(), Unread: n.Unread()})
}

// MarkRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.live.Notifications(r.Context())
	if err != nil {
		writeError(w, h.log, "load notifications", err)
		return
	}
	if err := n.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, "mark notification read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: n.Items(), Unread: n.Unread()})
}

// MarkManyRead handles POST /notifications/read
// Marks the listed notifications read, stopping at the first failure.
func (h *NotificationHandler) MarkManyRead(w http.ResponseWriter, r *http.Request) {
	var req model.MarkReadRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.NotificationIDs) == 0 {
		httputil.WriteBadRequest(w, "notificationIds is required")
		return
	}

	n, err := h.live.Notifications(r.Context())
	if err != nil {
		writeError(w, h.log, "load notifications", err)
		return
	}
	for _, id := range req.NotificationIDs {
		if err := n.MarkRead(r.Context(), id); err != nil {
			writeError(w, h.log, "mark notifications read", err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: n.Items(), Unread: n.Unread()})
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.live.Notifications(r.Context())
	if err != nil {
		writeError(w, h.log, "load notifications", err)
		return
	}
	if err := n.MarkAllRead(r.Context()); err != nil {
		writeError(w, h.log, "mark all notifications read", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "All notifications marked as read")
}
