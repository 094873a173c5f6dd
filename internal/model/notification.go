package model

import (
	"time"
)

// Notification types
const (
	NotificationTypeLike                = "like"
	NotificationTypeComment             = "comment"
	NotificationTypeFavorite            = "favorite"
	NotificationTypeMessage             = "message"
	NotificationTypeAlbumAccessRequest  = "album_access_request"
	NotificationTypeAlbumAccessResponse = "album_access_response"
	NotificationTypePostApproved        = "post_approved"
	NotificationTypePostRejected        = "post_rejected"
	NotificationTypePhotoApproved       = "photo_approved"
	NotificationTypeVerification        = "verification"
)

// Notification represents a single notification addressed to the local user.
type Notification struct {
	ID        string    `json:"_id"`
	Type      string    `json:"type"`
	Sender    UserRef   `json:"sender"`
	PostID    string    `json:"post,omitempty"`
	Text      string    `json:"text,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarkReadRequest is the request body for marking notifications as read.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

func (n *Notification) Validate() error {
	if n == nil || n.ID == "" {
		return invalid("notification._id", "missing")
	}
	if n.Type == "" {
		return invalid("notification.type", "missing")
	}
	return nil
}
