package model

import (
	"time"
)

// Post represents a feed post with its denormalized likes and comments.
type Post struct {
	ID         string    `json:"_id"`
	ClientID   string    `json:"clientId,omitempty"`
	Author     UserRef   `json:"user"`
	Content    string    `json:"content"`
	Image      string    `json:"image,omitempty"`
	Likes      []UserRef `json:"likes"`
	Comments   []Comment `json:"comments"`
	IsApproved bool      `json:"isApproved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreatePostRequest is the body of POST /posts. Image is a URL returned by the image host.
type CreatePostRequest struct {
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// Post constraints
const (
	MaxPostContentLength = 2200
)

func (p *Post) Validate() error {
	if p == nil || p.ID == "" {
		return invalid("post._id", "missing")
	}
	if p.Author.ID == "" {
		return invalid("post.user", "missing")
	}
	for i := range p.Comments {
		if err := p.Comments[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VisibleTo reports whether the post may appear in viewerID's feed.
// Unapproved posts are only shown to their author.
func (p *Post) VisibleTo(viewerID string) bool {
	return p.IsApproved || p.Author.ID == viewerID
}

// LikedBy reports whether userID appears in the like list.
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.ID == userID {
			return true
		}
	}
	return false
}

// CreatePostApproval is the approval state a freshly created post starts with:
// text-only posts are published at once, posts with an image wait for moderation.
func CreatePostApproval(req CreatePostRequest) bool {
	return req.Image == ""
}
