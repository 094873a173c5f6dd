package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
	"socialsync/internal/realtime"
	"socialsync/internal/session"
)

// AuthHandler groups the session endpoints.
type AuthHandler struct {
	app *app.App
	log *zap.Logger
}

// NewAuthHandler wires dependencies for session endpoints.
func NewAuthHandler(a *app.App, log *zap.Logger) *AuthHandler {
	return &AuthHandler{app: a, log: log.Named("auth")}
}

type loginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	GoogleIDToken string `json:"googleIdToken"`
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Connected bool        `json:"connected"`
	Unread    int         `json:"unread"`
}

func (h *AuthHandler) sessionBody(s *session.Session) sessionResponse {
	return sessionResponse{User: s.User, Connected: h.app.Connected(), Unread: h.app.Unread()}
}

// Login handles POST /login with either email and password or a Google ID token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	var (
		s   *session.Session
		err error
	)
	if token := strings.TrimSpace(req.GoogleIDToken); token != "" {
		s, err = h.app.LoginWithGoogle(r.Context(), token)
	} else {
		s, err = h.app.Login(r.Context(), model.Credentials{Email: strings.TrimSpace(req.Email), Password: req.Password})
	}
	if err != nil {
		writeError(w, h.log, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.sessionBody(s))
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	s, err := h.app.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.sessionBody(s))
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Logout(r.Context()); err != nil {
		// Memory is cleared even when storage fails.
		h.log.Warn("logout storage failure", zap.Error(err))
	}
	httputil.WriteMessage(w, http.StatusOK, "Logged out")
}

// Me handles GET /me. A banned client gets the ban reason instead of a session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := h.app.Session().Current()
	if s == nil {
		if reason, banned := h.app.BanReason(); banned {
			httputil.WriteError(w, http.StatusForbidden, CodeBanned, reason)
			return
		}
		httputil.WriteUnauthorized(w, "Not logged in")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.sessionBody(s))
}

// Reconnect handles POST /me/reconnect.
func (h *AuthHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Reconnect(r.Context()); err != nil {
		writeError(w, h.log, "reconnect", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Connected")
}

// Settings handles GET /settings. No session is needed.
func (h *AuthHandler) Settings(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Settings(r.Context())
	if err != nil {
		writeError(w, h.log, "settings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

// Toasts handles GET /toasts and drains the pending in-app banners.
func (h *AuthHandler) Toasts(w http.ResponseWriter, r *http.Request) {
	toasts := make([]realtime.Toast, 0)
	ch := h.app.Toasts()
	for {
		select {
		case t := <-ch:
			toasts = append(toasts, t)
		default:
			httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"toasts": toasts})
			return
		}
	}
}
