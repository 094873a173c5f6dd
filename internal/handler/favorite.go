package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialsync/internal/httputil"
	"socialsync/internal/viewmodel"
)

// RelationHandler toggles the viewer's favorite and block lists.
type RelationHandler struct {
	live *Live
	log  *zap.Logger
}

func NewRelationHandler(live *Live, log *zap.Logger) *RelationHandler {
	return &RelationHandler{live: live, log: log.Named("relation")}
}

type relationResponse struct {
	UserID     string `json:"userId"`
	IsFavorite bool   `json:"isFavorite"`
	IsBlocked  bool   `json:"isBlocked"`
}

// Favorite handles POST /user/{id}/favorite
func (h *RelationHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "favorite", func(p *viewmodel.Profile) error { return p.SetFavorite(r.Context(), true) })
}

// Unfavorite handles DELETE /user/{id}/favorite
func (h *RelationHandler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "unfavorite", func(p *viewmodel.Profile) error { return p.SetFavorite(r.Context(), false) })
}

// Block handles POST /user/{id}/block
// The live feed is dropped so the next read applies the new block list.
func (h *RelationHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "block", func(p *viewmodel.Profile) error {
		if err := p.SetBlocked(r.Context(), true); err != nil {
			return err
		}
		h.live.DropFeed()
		return nil
	})
}

// Unblock handles DELETE /user/{id}/block
func (h *RelationHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "unblock", func(p *viewmodel.Profile) error {
		if err := p.SetBlocked(r.Context(), false); err != nil {
			return err
		}
		h.live.DropFeed()
		return nil
	})
}

func (h *RelationHandler) toggle(w http.ResponseWriter, r *http.Request, op string, fn func(*viewmodel.Profile) error) {
	userID := chi.URLParam(r, "id")
	p, err := h.live.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, "load profile", err)
		return
	}
	if err := fn(p); err != nil {
		writeError(w, h.log, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, relationResponse{
		UserID:     userID,
		IsFavorite: p.IsFavorite(),
		IsBlocked:  p.IsBlocked(),
	})
}
