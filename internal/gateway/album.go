package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

// RequestAlbumAccess asks ownerID to reveal their private album.
func (c *Client) RequestAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error) {
	body := map[string]string{"ownerId": ownerID}
	return getOne[model.AlbumAccessRequest](ctx, c, http.MethodPost, "/album-access/request", token, body)
}

// AlbumAccessRequests lists requests addressed to the local user.
func (c *Client) AlbumAccessRequests(ctx context.Context, token string) ([]model.AlbumAccessRequest, error) {
	return getList[model.AlbumAccessRequest](ctx, c, "/album-access/requests", token)
}

// RespondAlbumAccess approves or rejects a request; only the owner may call it.
func (c *Client) RespondAlbumAccess(ctx context.Context, token, requestID string, status model.AlbumAccessStatus) (*model.AlbumAccessRequest, error) {
	body := model.AlbumAccessResponse{Status: status}
	return getOne[model.AlbumAccessRequest](ctx, c, http.MethodPut, "/album-access/"+escape(requestID), token, body)
}

// CheckAlbumAccess reports whether the local user may see ownerID's private album.
func (c *Client) CheckAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
	var out model.AlbumAccessCheck
	if err := c.DoJSON(ctx, http.MethodGet, "/album-access/check/"+escape(ownerID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
