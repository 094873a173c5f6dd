package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"socialsync/internal/model"
)

// Login exchanges credentials for a user and bearer token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	resp, err := getOne[model.AuthResponse](ctx, c, http.MethodPost, "/auth/login", "", creds)
	if err != nil {
		return nil, credentialsError(err)
	}
	return resp, nil
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	return getOne[model.AuthResponse](ctx, c, http.MethodPost, "/auth/register", "", req)
}

// LoginWithGoogle exchanges a Google ID token for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*model.AuthResponse, error) {
	body := map[string]string{"credential": idToken}
	resp, err := getOne[model.AuthResponse](ctx, c, http.MethodPost, "/auth/google", "", body)
	if err != nil {
		return nil, credentialsError(err)
	}
	return resp, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	return getOne[model.User](ctx, c, http.MethodGet, "/auth/me", token, nil)
}

// credentialsError turns a 400/401 on a login endpoint into ErrInvalidCredentials
// while keeping the original error reachable.
func credentialsError(err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && !reqErr.Transport &&
		(reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusBadRequest) {
		return fmt.Errorf("%w: %w", model.ErrInvalidCredentials, err)
	}
	return err
}
