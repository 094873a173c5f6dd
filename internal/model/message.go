package model

import (
	"time"
)

// MessageType tags a chat message.
type MessageType string

const (
	MessageTypePlain               MessageType = "text"
	MessageTypeAlbumAccessRequest  MessageType = "album_access_request"
	MessageTypeAlbumAccessResponse MessageType = "album_access_response"
)

// Message is a single chat message between two users.
type Message struct {
	ID        string      `json:"_id"`
	ClientID  string      `json:"clientId,omitempty"`
	Sender    UserRef     `json:"sender"`
	Receiver  UserRef     `json:"receiver"`
	Content   string      `json:"content,omitempty"`
	Image     string      `json:"image,omitempty"`
	Type      MessageType `json:"type"`
	RelatedID string      `json:"relatedId,omitempty"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SendMessageRequest is the body of POST /chat/messages.
type SendMessageRequest struct {
	ReceiverID string      `json:"receiverId"`
	Content    string      `json:"content,omitempty"`
	Image      string      `json:"image,omitempty"`
	Type       MessageType `json:"type,omitempty"`
	RelatedID  string      `json:"relatedId,omitempty"`
	ClientID   string      `json:"clientId,omitempty"`
}

// Conversation is derived on the client: the latest message per counterpart plus an unread counter.
type Conversation struct {
	Counterpart UserRef `json:"user"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}

func (m *Message) Validate() error {
	if m == nil || m.ID == "" {
		return invalid("message._id", "missing")
	}
	if m.Sender.ID == "" || m.Receiver.ID == "" {
		return invalid("message.sender", "missing party")
	}
	switch m.Type {
	case "":
		m.Type = MessageTypePlain
	case MessageTypePlain, MessageTypeAlbumAccessRequest, MessageTypeAlbumAccessResponse:
	default:
		return invalid("message.type", "unknown type "+string(m.Type))
	}
	if m.CreatedAt.IsZero() {
		if t, ok := IDTime(m.ID); ok {
			m.CreatedAt = t
		}
	}
	return nil
}

// Counterpart returns the party of m that is not self.
func (m *Message) Counterpart(selfID string) UserRef {
	if m.Sender.ID == selfID {
		return m.Receiver
	}
	return m.Sender
}

// ConversationKey returns the key of the conversation m belongs to.
func (m *Message) ConversationKey() string {
	return ConversationKey(m.Sender.ID, m.Receiver.ID)
}

func (c *Conversation) Validate() error {
	if c.Counterpart.ID == "" {
		return invalid("conversation.user", "missing")
	}
	return c.LastMessage.Validate()
}
