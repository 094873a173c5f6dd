package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

// Feed returns the posts visible to the local user.
func (c *Client) Feed(ctx context.Context, token string) ([]model.Post, error) {
	return getList[model.Post](ctx, c, "/posts", token)
}

// UserPosts returns the posts authored by userID.
func (c *Client) UserPosts(ctx context.Context, token, userID string) ([]model.Post, error) {
	return getList[model.Post](ctx, c, "/posts/user/"+escape(userID), token)
}

func (c *Client) GetPost(ctx context.Context, token, postID string) (*model.Post, error) {
	return getOne[model.Post](ctx, c, http.MethodGet, "/posts/"+escape(postID), token, nil)
}

func (c *Client) CreatePost(ctx context.Context, token string, req model.CreatePostRequest) (*model.Post, error) {
	return getOne[model.Post](ctx, c, http.MethodPost, "/posts", token, req)
}

func (c *Client) DeletePost(ctx context.Context, token, postID string) error {
	return c.DoJSON(ctx, http.MethodDelete, "/posts/"+escape(postID), token, nil, nil)
}

// LikePost returns the post with its updated like list.
func (c *Client) LikePost(ctx context.Context, token, postID string) (*model.Post, error) {
	return getOne[model.Post](ctx, c, http.MethodPost, "/posts/"+escape(postID)+"/like", token, nil)
}

func (c *Client) UnlikePost(ctx context.Context, token, postID string) (*model.Post, error) {
	return getOne[model.Post](ctx, c, http.MethodPost, "/posts/"+escape(postID)+"/unlike", token, nil)
}

// AddComment returns the created comment.
func (c *Client) AddComment(ctx context.Context, token, postID string, req model.CreateCommentRequest) (*model.Comment, error) {
	return getOne[model.Comment](ctx, c, http.MethodPost, "/posts/"+escape(postID)+"/comments", token, req)
}

func (c *Client) UpdateComment(ctx context.Context, token, postID, commentID string, req model.CreateCommentRequest) (*model.Comment, error) {
	path := "/posts/" + escape(postID) + "/comments/" + escape(commentID)
	return getOne[model.Comment](ctx, c, http.MethodPut, path, token, req)
}

func (c *Client) DeleteComment(ctx context.Context, token, postID, commentID string) error {
	path := "/posts/" + escape(postID) + "/comments/" + escape(commentID)
	return c.DoJSON(ctx, http.MethodDelete, path, token, nil, nil)
}
