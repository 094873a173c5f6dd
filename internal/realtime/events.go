package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"socialsync/internal/model"
)

// Client -> server events
const (
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventLeaveChat  = "leave chat"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
)

// Server -> client events
const (
	EventMessageReceived     = "message received"
	EventNewPost             = "new post"
	EventPostApproved        = "post_approved"
	EventPostRejected        = "post_rejected"
	EventPostLiked           = "post liked"
	EventPostUnliked         = "post unliked"
	EventNewComment          = "new comment"
	EventPostDeleted         = "post deleted"
	EventNewNotification     = "new notification"
	EventPhotoApproved       = "photo approved"
	EventAccountBanned       = "account_banned"
	EventPresence            = "presence"
	EventBlocked             = "blocked"
	EventUnblocked           = "unblocked"
	EventAlbumAccessResponse = "album_access_response"
)

// Lifecycle events published locally by the handle.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// wireAliases maps names seen on the wire to the name subscribers use.
var wireAliases = map[string]string{
	"user status": EventPresence,
	"user_status": EventPresence,
	"userStatus":  EventPresence,
}

// Canonical returns the subscriber-facing name for a wire event name.
func Canonical(name string) string {
	if c, ok := wireAliases[name]; ok {
		return c
	}
	return name
}

// Event is one inbound event with its raw arguments.
type Event struct {
	Name string
	Args []json.RawMessage
}

// Payload returns the first argument, or nil.
func (e Event) Payload() json.RawMessage {
	if len(e.Args) == 0 {
		return nil
	}
	return e.Args[0]
}

// Decode unmarshals the first argument into v.
func (e Event) Decode(v interface{}) error {
	p := e.Payload()
	if len(p) == 0 {
		return fmt.Errorf("event %q: empty payload", e.Name)
	}
	if err := json.Unmarshal(p, v); err != nil {
		return fmt.Errorf("event %q: %w", e.Name, err)
	}
	return nil
}

// PresenceChanged is the normalized form of every presence event.
type PresenceChanged struct {
	UserID   string `json:"userId"`
	Name     string `json:"name,omitempty"`
	IsOnline bool   `json:"isOnline"`
}

func (p *PresenceChanged) UnmarshalJSON(data []byte) error {
	var aux struct {
		UserID   string `json:"userId"`
		ID       string `json:"_id"`
		Name     string `json:"name"`
		IsOnline *bool  `json:"isOnline"`
		Online   *bool  `json:"online"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.UserID = firstNonEmpty(aux.UserID, aux.ID)
	p.Name = aux.Name
	switch {
	case aux.IsOnline != nil:
		p.IsOnline = *aux.IsOnline
	case aux.Online != nil:
		p.IsOnline = *aux.Online
	default:
		p.IsOnline = strings.EqualFold(aux.Status, "online")
	}
	if p.UserID == "" {
		return fmt.Errorf("presence: missing user id")
	}
	return nil
}

// PhotoSubtype tells which image a photo approval is about.
type PhotoSubtype string

const (
	PhotoAvatar  PhotoSubtype = "avatar"
	PhotoGallery PhotoSubtype = "gallery"
)

// PhotoApproved is the normalized photo approval event.
type PhotoApproved struct {
	Subtype PhotoSubtype `json:"type"`
	URL     string       `json:"url"`
	UserID  string       `json:"userId,omitempty"`
}

func (p *PhotoApproved) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type   string `json:"type"`
		Kind   string `json:"kind"`
		URL    string `json:"url"`
		Avatar string `json:"avatar"`
		Image  string `json:"image"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.UserID = aux.UserID
	sub := aux.Type
	if sub == "" {
		sub = aux.Kind
	}
	switch PhotoSubtype(strings.ToLower(sub)) {
	case PhotoAvatar:
		p.Subtype = PhotoAvatar
	case PhotoGallery:
		p.Subtype = PhotoGallery
	case "":
		if aux.Avatar != "" {
			p.Subtype = PhotoAvatar
		} else {
			p.Subtype = PhotoGallery
		}
	default:
		return fmt.Errorf("photo approved: unknown type %q", sub)
	}
	p.URL = firstNonEmpty(aux.URL, aux.Avatar, aux.Image)
	return nil
}

// AccountBanned is sent before the server drops a banned account.
type AccountBanned struct {
	Reason string `json:"reason"`
}

// BlockChanged is the payload of blocked and unblocked.
type BlockChanged struct {
	BlockerID string `json:"blockerId"`
	BlockedID string `json:"blockedId"`
}

// Other returns the party that is not self.
func (b BlockChanged) Other(self string) string {
	if b.BlockerID == self {
		return b.BlockedID
	}
	return b.BlockerID
}

// PostReaction is the payload of post liked and post unliked. Post is set when
// the server sends the whole updated record.
type PostReaction struct {
	PostID string        `json:"postId"`
	User   model.UserRef `json:"user"`
	Post   *model.Post   `json:"post,omitempty"`
}

// CommentAdded is the payload of new comment.
type CommentAdded struct {
	PostID  string        `json:"postId"`
	Comment model.Comment `json:"comment"`
}

// AlbumAccessDecided is the payload of album_access_response. Message is the
// synthetic response message appended to the conversation.
type AlbumAccessDecided struct {
	RequestID string                  `json:"requestId"`
	Status    model.AlbumAccessStatus `json:"status"`
	Message   *model.Message          `json:"message,omitempty"`
}

// DecodeID reads an id from a payload that is either a bare string or an object
// carrying _id, postId or id.
func DecodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty id payload")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var aux struct {
		ID     string `json:"_id"`
		PostID string `json:"postId"`
		Plain  string `json:"id"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return "", err
	}
	id := firstNonEmpty(aux.ID, aux.PostID, aux.Plain)
	if id == "" {
		return "", fmt.Errorf("payload has no id")
	}
	return id, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
