package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"socialsync/internal/gateway"
	"socialsync/internal/model"
)

// Discover lists profiles to browse with live presence applied. Blocked
// users and the viewer are left out.
func (a *App) Discover(ctx context.Context, f gateway.DiscoverFilter) ([]model.User, error) {
	self, token, err := a.credentials()
	if err != nil {
		return nil, err
	}
	users, err := a.gw.ListUsers(ctx, token, f)
	if err != nil {
		a.log.Warn("discover failed", zap.Error(err))
		return nil, err
	}

	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.ID == self.ID || self.HasBlocked(u.ID) {
			continue
		}
		u.IsOnline = a.presence.IsOnline(u.ID, u.IsOnline)
		if f.OnlineOnly && !u.IsOnline {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// UpdateProfile edits the local user and keeps the stored session in step.
func (a *App) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.User, error) {
	_, token, err := a.credentials()
	if err != nil {
		return nil, err
	}
	if err := model.ValidateProfileUpdate(req); err != nil {
		return nil, err
	}
	u, err := a.gw.UpdateProfile(ctx, token, req)
	if err != nil {
		a.log.Warn("update profile failed", zap.Error(err))
		return nil, err
	}
	if err := a.sess.UpdateUser(ctx, u); err != nil {
		a.log.Warn("store profile failed", zap.Error(err))
	}
	return u, nil
}

func (a *App) BlockedUsers(ctx context.Context) ([]model.User, error) {
	_, token, err := a.credentials()
	if err != nil {
		return nil, err
	}
	return a.gw.BlockedUsers(ctx, token)
}

// RequestVerification submits an already uploaded selfie for review. The
// outcome arrives later as a notification.
func (a *App) RequestVerification(ctx context.Context, photoURL string) error {
	_, token, err := a.credentials()
	if err != nil {
		return err
	}
	if strings.TrimSpace(photoURL) == "" {
		return &model.ValidationError{Field: "photo", Reason: "required"}
	}
	return a.gw.RequestVerification(ctx, token, photoURL)
}

// AlbumRequests lists album-access requests addressed to the local user.
func (a *App) AlbumRequests(ctx context.Context) ([]model.AlbumAccessRequest, error) {
	_, token, err := a.credentials()
	if err != nil {
		return nil, err
	}
	return a.gw.AlbumAccessRequests(ctx, token)
}
