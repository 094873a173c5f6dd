package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

type UserHandler struct {
	app  *app.App
	live *Live
	log  *zap.Logger
}

func NewUserHandler(a *app.App, live *Live, log *zap.Logger) *UserHandler {
	return &UserHandler{app: a, live: live, log: log.Named("user")}
}

type profileResponse struct {
	User       *model.User             `json:"user"`
	Posts      []model.Post            `json:"posts"`
	Album      *model.AlbumAccessCheck `json:"album,omitempty"`
	IsFavorite bool                    `json:"isFavorite"`
	IsBlocked  bool                    `json:"isBlocked"`
}

// GetProfile handles GET /user/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.live.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "load profile", err)
		return
	}
	u, ok := p.User()
	if !ok {
		httputil.WriteNotFound(w, "User not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		User:       u,
		Posts:      p.Posts(),
		Album:      p.Album(),
		IsFavorite: p.IsFavorite(),
		IsBlocked:  p.IsBlocked(),
	})
}

// Report handles POST /user/{id}/report
func (h *UserHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	p, err := h.live.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "load profile", err)
		return
	}
	if err := p.Report(r.Context(), req.Reason, req.Details); err != nil {
		writeError(w, h.log, "report user", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Report submitted")
}

// RequestAlbumAccess handles POST /user/{id}/album-access
func (h *UserHandler) RequestAlbumAccess(w http.ResponseWriter, r *http.Request) {
	p, err := h.live.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "load profile", err)
		return
	}
	req, err := p.RequestAlbumAccess(r.Context())
	if err != nil {
		writeError(w, h.log, "request album access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

// Presence handles GET /presence/{id}
// Unknown users read as offline.
func (h *UserHandler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if _, err := model.ParseID(userID); err != nil {
		writeError(w, h.log, "presence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId":   userID,
		"isOnline": h.app.IsOnline(userID, false),
	})
}

// UpdateLocation handles POST /me/location
// A missing location source or a slow fix is not an error.
func (h *UserHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.app.UpdateLocation(r.Context()); err != nil {
		writeError(w, h.log, "update location", err)
		return
	}
	u, _ := h.app.Session().CurrentUser()
	httputil.WriteJSON(w, http.StatusOK, u)
}

// RegisterDevice handles POST /me/device
func (h *UserHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterTokenRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := h.app.RegisterDevice(r.Context(), req.Token, req.Platform); err != nil {
		writeError(w, h.log, "register device", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Device token registered")
}
