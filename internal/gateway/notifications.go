package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

func (c *Client) Notifications(ctx context.Context, token string) ([]model.Notification, error) {
	return getList[model.Notification](ctx, c, "/notifications", token)
}

func (c *Client) MarkNotificationRead(ctx context.Context, token, notificationID string) error {
	return c.DoJSON(ctx, http.MethodPut, "/notifications/"+escape(notificationID)+"/read", token, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) error {
	return c.DoJSON(ctx, http.MethodPut, "/notifications/read-all", token, nil, nil)
}
