package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"socialsync/internal/model"
)

// GetUser fetches a user profile.
func (c *Client) GetUser(ctx context.Context, token, userID string) (*model.User, error) {
	return getOne[model.User](ctx, c, http.MethodGet, "/users/"+escape(userID), token, nil)
}

// DiscoverFilter narrows the profile browsing list.
type DiscoverFilter struct {
	Gender     string
	MinAge     int
	MaxAge     int
	OnlineOnly bool
	Page       int
}

// ListUsers returns profiles for the browse screen.
func (c *Client) ListUsers(ctx context.Context, token string, f DiscoverFilter) ([]model.User, error) {
	q := url.Values{}
	if f.Gender != "" {
		q.Set("gender", f.Gender)
	}
	if f.MinAge > 0 {
		q.Set("minAge", strconv.Itoa(f.MinAge))
	}
	if f.MaxAge > 0 {
		q.Set("maxAge", strconv.Itoa(f.MaxAge))
	}
	if f.OnlineOnly {
		q.Set("online", "true")
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	path := "/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return getList[model.User](ctx, c, path, token)
}

// UpdateProfile edits the local user's profile and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, token string, req model.UpdateProfileRequest) (*model.User, error) {
	return getOne[model.User](ctx, c, http.MethodPut, "/users/profile", token, req)
}

// Favorite adds userID to the local user's favorites.
func (c *Client) Favorite(ctx context.Context, token, userID string) error {
	return c.DoJSON(ctx, http.MethodPost, "/users/"+escape(userID)+"/favorite", token, nil, nil)
}

// Unfavorite removes userID from the local user's favorites.
func (c *Client) Unfavorite(ctx context.Context, token, userID string) error {
	return c.DoJSON(ctx, http.MethodDelete, "/users/"+escape(userID)+"/favorite", token, nil, nil)
}

// Block hides userID from the local user.
func (c *Client) Block(ctx context.Context, token, userID string) error {
	return c.DoJSON(ctx, http.MethodPost, "/users/"+escape(userID)+"/block", token, nil, nil)
}

// Unblock reverses Block.
func (c *Client) Unblock(ctx context.Context, token, userID string) error {
	return c.DoJSON(ctx, http.MethodPost, "/users/"+escape(userID)+"/unblock", token, nil, nil)
}

// BlockedUsers lists the users the local user has blocked.
func (c *Client) BlockedUsers(ctx context.Context, token string) ([]model.User, error) {
	return getList[model.User](ctx, c, "/users/blocked", token)
}

// UpdateLocation reports the device position.
func (c *Client) UpdateLocation(ctx context.Context, token string, loc model.Location) error {
	return c.DoJSON(ctx, http.MethodPut, "/users/location", token, loc, nil)
}

// RequestVerification submits a verification selfie URL for review.
func (c *Client) RequestVerification(ctx context.Context, token, photoURL string) error {
	body := map[string]string{"photo": photoURL}
	return c.DoJSON(ctx, http.MethodPost, "/users/verification", token, body, nil)
}

// RegisterDevice registers a push token for this device.
func (c *Client) RegisterDevice(ctx context.Context, token string, req model.RegisterTokenRequest) error {
	return c.DoJSON(ctx, http.MethodPost, "/users/device-token", token, req, nil)
}
