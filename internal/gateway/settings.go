package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

// Settings returns the public backend flags. No token is required.
func (c *Client) Settings(ctx context.Context) (*model.Settings, error) {
	var out model.Settings
	if err := c.DoJSON(ctx, http.MethodGet, "/settings/public", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
