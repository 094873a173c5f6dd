package model

import (
	"time"
)

// Comment represents a comment on a post.
type Comment struct {
	ID        string    `json:"_id"`
	Author    UserRef   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateCommentRequest is the request body for creating or editing a comment.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// Comment constraints
const (
	MaxCommentLength = 1000
)

func (c *Comment) Validate() error {
	if c.ID == "" {
		return invalid("comment._id", "missing")
	}
	return nil
}
