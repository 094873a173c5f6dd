package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"socialsync/internal/media"
	"socialsync/internal/model"
	"socialsync/internal/viewmodel"
)

// Screens share the session and the realtime channel that is open when they
// are built. Callers Close them when navigating away.

func (a *App) ChatThread(ctx context.Context, counterpartID string) (*viewmodel.ChatThread, error) {
	c := viewmodel.NewChatThread(a.gw, a.env())
	if err := c.Open(ctx, counterpartID); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (a *App) Conversations(ctx context.Context) (*viewmodel.Conversations, error) {
	c := viewmodel.NewConversations(a.gw, a.env())
	if err := c.Hydrate(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (a *App) Feed(ctx context.Context) (*viewmodel.Feed, error) {
	f := viewmodel.NewFeed(a.gw, a.env())
	if err := f.Hydrate(ctx); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (a *App) Profile(ctx context.Context, userID string) (*viewmodel.Profile, error) {
	p := viewmodel.NewProfile(a.gw, a.env(), a.presence, userID)
	if err := p.Hydrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (a *App) Notifications(ctx context.Context) (*viewmodel.NotificationCenter, error) {
	n := viewmodel.NewNotificationCenter(a.gw, a.env())
	if err := n.Hydrate(ctx); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Post fetches one post. Pending posts by other users are not returned.
func (a *App) Post(ctx context.Context, postID string) (*model.Post, error) {
	u, token, err := a.credentials()
	if err != nil {
		return nil, err
	}
	p, err := a.gw.GetPost(ctx, token, postID)
	if err != nil {
		return nil, err
	}
	if !p.VisibleTo(u.ID) || u.HasBlocked(p.Author.ID) {
		return nil, model.ErrNotFound
	}
	return p, nil
}

// IsOnline applies live presence over fallback.
func (a *App) IsOnline(userID string, fallback bool) bool {
	return a.presence.IsOnline(userID, fallback)
}

// =============================================================================
// Device, location, settings, uploads
// =============================================================================

// UpdateLocation reports the device position. A slow or failing locator is
// not an error: the app proceeds without a location.
func (a *App) UpdateLocation(ctx context.Context) error {
	u, token, err := a.credentials()
	if err != nil {
		return err
	}
	if a.locator == nil {
		return nil
	}

	geoCtx, cancel := context.WithTimeout(ctx, a.geoTimeout)
	defer cancel()
	loc, err := a.locator.Locate(geoCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			a.log.Info("location timed out, continuing without it", zap.Duration("timeout", a.geoTimeout))
		} else {
			a.log.Info("location unavailable, continuing without it", zap.Error(err))
		}
		return nil
	}

	if err := a.gw.UpdateLocation(ctx, token, loc); err != nil {
		a.log.Warn("update location failed", zap.Error(err))
		return err
	}
	updated := *u
	updated.Location = &loc
	if err := a.sess.UpdateUser(ctx, &updated); err != nil {
		a.log.Warn("store location failed", zap.Error(err))
	}
	return nil
}

// RegisterDevice hands the backend a push token for this device.
func (a *App) RegisterDevice(ctx context.Context, pushToken, platform string) error {
	_, token, err := a.credentials()
	if err != nil {
		return err
	}
	switch platform {
	case model.PlatformIOS, model.PlatformAndroid, model.PlatformWeb:
	default:
		return &model.ValidationError{Field: "platform", Reason: "unknown platform"}
	}
	if pushToken == "" {
		return &model.ValidationError{Field: "token", Reason: "required"}
	}
	return a.gw.RegisterDevice(ctx, token, model.RegisterTokenRequest{Token: pushToken, Platform: platform})
}

// Settings returns the public backend flags. No session is needed.
func (a *App) Settings(ctx context.Context) (*model.Settings, error) {
	s, err := a.gw.Settings(ctx)
	if err != nil {
		a.log.Warn("load settings failed", zap.Error(err))
		return nil, err
	}
	return s, nil
}

// UploadImage normalizes data and hands it to the image host. The returned
// URL is what posts, messages and profile edits reference.
func (a *App) UploadImage(ctx context.Context, data []byte, avatar bool) (*model.UploadResult, error) {
	if _, _, err := a.credentials(); err != nil {
		return nil, err
	}
	if a.uploader == nil {
		return nil, errors.New("no image host configured")
	}

	var (
		out []byte
		err error
	)
	if avatar {
		out, err = media.NormalizeAvatar(data)
	} else {
		out, err = media.Normalize(data, model.MaxImageEdge)
	}
	if err != nil {
		return nil, err
	}

	res, err := a.uploader.Upload(ctx, out)
	if err != nil {
		a.log.Warn("upload failed", zap.Int("bytes", len(out)), zap.Error(err))
		return nil, fmt.Errorf("upload image: %w", err)
	}
	return res, nil
}

func (a *App) credentials() (*model.User, string, error) {
	s := a.sess.Current()
	if s == nil {
		return nil, "", model.ErrNoSession
	}
	return s.User, s.Token, nil
}
