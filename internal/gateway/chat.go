package gateway

import (
	"context"
	"net/http"

	"socialsync/internal/model"
)

// Conversations lists the latest message per counterpart.
func (c *Client) Conversations(ctx context.Context, token string) ([]model.Conversation, error) {
	return getList[model.Conversation](ctx, c, "/chat/conversations", token)
}

// Messages returns the conversation with userID, oldest first.
func (c *Client) Messages(ctx context.Context, token, userID string) ([]model.Message, error) {
	return getList[model.Message](ctx, c, "/chat/messages/"+escape(userID), token)
}

func (c *Client) SendMessage(ctx context.Context, token string, req model.SendMessageRequest) (*model.Message, error) {
	return getOne[model.Message](ctx, c, http.MethodPost, "/chat/messages", token, req)
}

func (c *Client) DeleteMessage(ctx context.Context, token, messageID string) error {
	return c.DoJSON(ctx, http.MethodDelete, "/chat/messages/"+escape(messageID), token, nil, nil)
}

// MarkConversationRead marks every message from userID as read.
func (c *Client) MarkConversationRead(ctx context.Context, token, userID string) error {
	return c.DoJSON(ctx, http.MethodPut, "/chat/read/"+escape(userID), token, nil, nil)
}
