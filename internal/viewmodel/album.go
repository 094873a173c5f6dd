package viewmodel

import (
	"sync"

	"socialsync/internal/model"
)

// AlbumRequest is the client state of one album-access request:
// pending -> approved | rejected. Only the owner decides, and a decision is final.
type AlbumRequest struct {
	ID          string
	OwnerID     string
	RequesterID string

	mu        sync.Mutex
	confirmed model.AlbumAccessStatus
	proposed  model.AlbumAccessStatus // local decision awaiting the server
}

func NewAlbumRequest(id, ownerID, requesterID string) *AlbumRequest {
	return &AlbumRequest{
		ID:          id,
		OwnerID:     ownerID,
		RequesterID: requesterID,
		confirmed:   model.AlbumAccessPending,
	}
}

// Status is the state to render. A local decision in flight already counts.
func (r *AlbumRequest) Status() model.AlbumAccessStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status()
}

func (r *AlbumRequest) status() model.AlbumAccessStatus {
	if r.confirmed.Terminal() {
		return r.confirmed
	}
	if r.proposed != "" {
		return r.proposed
	}
	return model.AlbumAccessPending
}

// CanDecide reports whether userID may still approve or reject.
func (r *AlbumRequest) CanDecide(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return userID == r.OwnerID && !r.status().Terminal()
}

// Decide records the owner's local decision until confirm or revert.
func (r *AlbumRequest) Decide(userID string, s model.AlbumAccessStatus) error {
	if !s.ValidDecision() {
		return &model.ValidationError{Field: "status", Reason: "must be approved or rejected"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.OwnerID {
		return model.ErrNotAlbumOwner
	}
	if r.status().Terminal() {
		return model.ErrAlreadyDecided
	}
	r.proposed = s
	return nil
}

func (r *AlbumRequest) confirm(s model.AlbumAccessStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.confirmed.Terminal() && s.Terminal() {
		r.confirmed = s
	}
	r.proposed = ""
}

// revert drops a failed local decision. A remote decision that arrived meanwhile stays.
func (r *AlbumRequest) revert() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposed = ""
}

// Apply takes a decision that arrived from the server. It reports whether the
// state changed; decisions after the first are ignored.
func (r *AlbumRequest) Apply(s model.AlbumAccessStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirmed.Terminal() || !s.Terminal() {
		return false
	}
	before := r.status()
	r.confirmed = s
	r.proposed = ""
	return before != s
}
