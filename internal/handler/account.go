package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/gateway"
	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

type AccountHandler struct {
	app *app.App
	log *zap.Logger
}

func NewAccountHandler(a *app.App, log *zap.Logger) *AccountHandler {
	return &AccountHandler{app: a, log: log.Named("account")}
}

// Discover handles GET /users?gender=&minAge=&maxAge=&online=&page=
func (h *AccountHandler) Discover(w http.ResponseWriter, r *http.Request) {
	f, err := parseDiscoverFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.log, "discover", err)
		return
	}
	users, err := h.app.Discover(r.Context(), f)
	if err != nil {
		writeError(w, h.log, "discover", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func parseDiscoverFilter(q url.Values) (gateway.DiscoverFilter, error) {
	f := gateway.DiscoverFilter{Gender: q.Get("gender")}
	ints := []struct {
		key string
		dst *int
	}{
		{"minAge", &f.MinAge},
		{"maxAge", &f.MaxAge},
		{"page", &f.Page},
	}
	for _, p := range ints {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, &model.ValidationError{Field: p.key, Reason: "must be a non-negative number"}
		}
		*p.dst = n
	}
	if v := q.Get("online"); v != "" {
		online, err := strconv.ParseBool(v)
		if err != nil {
			return f, &model.ValidationError{Field: "online", Reason: "must be true or false"}
		}
		f.OnlineOnly = online
	}
	if f.MinAge > 0 && f.MaxAge > 0 && f.MinAge > f.MaxAge {
		return f, &model.ValidationError{Field: "maxAge", Reason: "below minAge"}
	}
	return f, nil
}

// UpdateProfile handles PUT /me/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	u, err := h.app.UpdateProfile(r.Context(), req)
	if err != nil {
		writeError(w, h.log, "update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// Blocked handles GET /me/blocked
func (h *AccountHandler) Blocked(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.BlockedUsers(r.Context())
	if err != nil {
		writeError(w, h.log, "list blocked", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type verificationRequest struct {
	Photo string `json:"photo"`
}

// RequestVerification handles POST /me/verification
func (h *AccountHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := h.app.RequestVerification(r.Context(), req.Photo); err != nil {
		writeError(w, h.log, "request verification", err)
		return
	}
	httputil.WriteMessage(w, http.StatusAccepted, "Verification submitted")
}

// AlbumRequests handles GET /album-access/requests
func (h *AccountHandler) AlbumRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.app.AlbumRequests(r.Context())
	if err != nil {
		writeError(w, h.log, "list album requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": reqs})
}
