package model

// AlbumAccessStatus is the decision state of an album-access request.
type AlbumAccessStatus string

const (
	AlbumAccessPending  AlbumAccessStatus = "pending"
	AlbumAccessApproved AlbumAccessStatus = "approved"
	AlbumAccessRejected AlbumAccessStatus = "rejected"
)

// AlbumAccessRequest asks an owner to reveal their private album to the requester.
type AlbumAccessRequest struct {
	ID        string            `json:"_id"`
	Requester UserRef           `json:"requester"`
	Owner     UserRef           `json:"owner"`
	Status    AlbumAccessStatus `json:"status"`
}

// AlbumAccessCheck is the answer of GET /album-access/check/{ownerId}.
type AlbumAccessCheck struct {
	HasAccess bool              `json:"hasAccess"`
	Status    AlbumAccessStatus `json:"status,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// AlbumAccessResponse is the body of PUT /album-access/{id}.
type AlbumAccessResponse struct {
	Status AlbumAccessStatus `json:"status"`
}

func (r *AlbumAccessRequest) Validate() error {
	if r == nil || r.ID == "" {
		return invalid("albumAccess._id", "missing")
	}
	switch r.Status {
	case AlbumAccessPending, AlbumAccessApproved, AlbumAccessRejected:
		return nil
	default:
		return invalid("albumAccess.status", "unknown status "+string(r.Status))
	}
}

// Terminal reports whether s can no longer change.
func (s AlbumAccessStatus) Terminal() bool {
	return s == AlbumAccessApproved || s == AlbumAccessRejected
}

// ValidDecision reports whether s is a decision an owner may send.
func (s AlbumAccessStatus) ValidDecision() bool {
	return s.Terminal()
}
