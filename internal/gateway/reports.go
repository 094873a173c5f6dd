package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

// CreateReport files a report. Reports are write-only on the client.
func (c *Client) CreateReport(ctx context.Context, token string, r model.Report) error {
	return c.DoJSON(ctx, http.MethodPost, "/reports", token, r, nil)
}
