package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialsync/internal/gateway"
	"socialsync/internal/media"
	"socialsync/internal/model"
	"socialsync/internal/presence"
	"socialsync/internal/realtime"
	"socialsync/internal/session"
	"socialsync/internal/viewmodel"
)

// Gateway is everything the client asks of the backend.
type Gateway interface {
	session.Authenticator
	viewmodel.ChatAPI
	viewmodel.ConversationAPI
	viewmodel.FeedAPI
	viewmodel.ProfileAPI
	viewmodel.NotificationAPI

	GetPost(ctx context.Context, token, postID string) (*model.Post, error)
	UpdateLocation(ctx context.Context, token string, loc model.Location) error
	RegisterDevice(ctx context.Context, token string, req model.RegisterTokenRequest) error
	Settings(ctx context.Context) (*model.Settings, error)

	ListUsers(ctx context.Context, token string, f gateway.DiscoverFilter) ([]model.User, error)
	UpdateProfile(ctx context.Context, token string, req model.UpdateProfileRequest) (*model.User, error)
	BlockedUsers(ctx context.Context, token string) ([]model.User, error)
	RequestVerification(ctx context.Context, token, photoURL string) error
	AlbumAccessRequests(ctx context.Context, token string) ([]model.AlbumAccessRequest, error)
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (model.Location, error)
}

// Deps holds what New needs.
type Deps struct {
	Gateway    Gateway
	Session    *session.Store
	Uploader   media.Uploader
	Locator    Locator
	SocketURL  string
	Dialer     *websocket.Dialer
	GeoTimeout time.Duration
	Log        *zap.Logger
}

// DefaultGeoTimeout bounds a location lookup when Deps leaves it unset.
const DefaultGeoTimeout = 5 * time.Second

// toastBuffer is how many toasts wait for a reader before new ones are dropped.
const toastBuffer = 32

// App is the client context. It ties the realtime connection to the session
// lifecycle and builds screens that share both.
type App struct {
	gw         Gateway
	sess       *session.Store
	rt         *realtime.Manager
	presence   *presence.Overlay
	uploader   media.Uploader
	locator    Locator
	geoTimeout time.Duration
	log        *zap.Logger
	toasts     chan realtime.Toast

	mu        sync.Mutex
	handle    *realtime.Handle
	bus       *relay
	detach    []func()
	banReason string

	unsubSession func()
}

func New(d Deps) (*App, error) {
	if d.Gateway == nil || d.Session == nil {
		return nil, errors.New("app: gateway and session are required")
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	geo := d.GeoTimeout
	if geo <= 0 {
		geo = DefaultGeoTimeout
	}

	a := &App{
		gw:         d.Gateway,
		sess:       d.Session,
		presence:   presence.NewOverlay(),
		uploader:   d.Uploader,
		locator:    d.Locator,
		geoTimeout: geo,
		log:        log.Named("app"),
		toasts:     make(chan realtime.Toast, toastBuffer),
		bus:        newRelay(),
	}

	rt, err := realtime.NewManager(d.SocketURL, realtime.Options{
		Dialer:     d.Dialer,
		Toaster:    a.toast,
		OnBan:      a.onBan,
		IsFavorite: a.isFavorite,
		Log:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("realtime manager: %w", err)
	}
	a.rt = rt
	a.unsubSession = a.sess.OnChange(a.sessionChanged)
	return a, nil
}

// =============================================================================
// Session lifecycle
// =============================================================================

func (a *App) Login(ctx context.Context, creds model.Credentials) (*session.Session, error) {
	s, err := a.sess.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	a.connect(ctx, s)
	return s, nil
}

func (a *App) Register(ctx context.Context, req model.RegisterRequest) (*session.Session, error) {
	s, err := a.sess.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	a.connect(ctx, s)
	return s, nil
}

func (a *App) LoginWithGoogle(ctx context.Context, idToken string) (*session.Session, error) {
	s, err := a.sess.LoginWithGoogle(ctx, idToken)
	if err != nil {
		return nil, err
	}
	a.connect(ctx, s)
	return s, nil
}

// Restore resumes a stored session and reconnects.
func (a *App) Restore(ctx context.Context) (*session.Session, error) {
	s, err := a.sess.Restore(ctx)
	if err != nil {
		return nil, err
	}
	a.connect(ctx, s)
	return s, nil
}

// Reconnect redials the realtime channel for the current session. Open
// screens move to the new socket.
func (a *App) Reconnect(ctx context.Context) error {
	s := a.sess.Current()
	if s == nil {
		return model.ErrNoSession
	}
	return a.connect(ctx, s)
}

// Logout drops the realtime channel, then the session.
func (a *App) Logout(ctx context.Context) error {
	a.teardown()
	return a.sess.Logout(ctx)
}

// connect attaches the realtime channel for s. The session stays valid when the
// socket cannot be opened: screens still work over HTTP and Reconnect can retry.
func (a *App) connect(ctx context.Context, s *session.Session) error {
	h, err := a.rt.Connect(ctx, s.User, s.Token)
	if err != nil {
		a.log.Warn("realtime unavailable", zap.String("user_id", s.User.ID), zap.Error(err))
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.banReason = ""
	if a.handle == h {
		return nil
	}
	a.detachLocked()
	a.handle = h
	a.bus.bind(h)
	a.detach = append(a.detach, a.presence.Attach(h))
	sub := h.On(realtime.EventPhotoApproved, a.onPhotoApproved)
	a.detach = append(a.detach, func() { h.Off(sub) })
	return nil
}

func (a *App) sessionChanged(s *session.Session) {
	if s == nil {
		a.teardown()
	}
}

func (a *App) teardown() {
	a.mu.Lock()
	a.detachLocked()
	a.handle = nil
	a.bus.bind(nil)
	a.mu.Unlock()

	a.rt.Disconnect()
	a.presence.Reset()
}

func (a *App) detachLocked() {
	for _, fn := range a.detach {
		fn()
	}
	a.detach = nil
}

// onBan runs off the dispatcher goroutine, so tearing the socket down is safe.
func (a *App) onBan(b realtime.AccountBanned) {
	a.log.Warn("account banned, logging out", zap.String("reason", b.Reason))
	a.mu.Lock()
	a.banReason = b.Reason
	if a.banReason == "" {
		a.banReason = model.ErrBanned.Error()
	}
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Logout(ctx); err != nil {
		a.log.Warn("logout after ban failed", zap.Error(err))
	}
	a.toast(realtime.Toast{Text: "Your account has been banned"})
}

// BanReason is set after a forced logout until the next successful connect.
func (a *App) BanReason() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.banReason, a.banReason != ""
}

func (a *App) isFavorite(userID string) bool {
	u, ok := a.sess.CurrentUser()
	return ok && u.HasFavorite(userID)
}

// onPhotoApproved keeps the session user's avatar and gallery current.
func (a *App) onPhotoApproved(ev realtime.Event) {
	var p realtime.PhotoApproved
	if err := ev.Decode(&p); err != nil || p.URL == "" {
		return
	}
	u, ok := a.sess.CurrentUser()
	if !ok || (p.UserID != "" && p.UserID != u.ID) {
		return
	}
	updated := *u
	viewmodel.ApplyPhotoApproval(&updated, p)
	if err := a.sess.UpdateUser(context.Background(), &updated); err != nil {
		a.log.Warn("store approved photo failed", zap.Error(err))
	}
}

func (a *App) toast(t realtime.Toast) {
	select {
	case a.toasts <- t:
	default:
		a.log.Debug("toast dropped", zap.String("text", t.Text))
	}
}

// Toasts delivers transient notices such as favorites coming online.
func (a *App) Toasts() <-chan realtime.Toast {
	return a.toasts
}

// Close releases the realtime channel and stops following the session.
func (a *App) Close() {
	if a.unsubSession != nil {
		a.unsubSession()
	}
	a.teardown()
}

// =============================================================================
// Accessors
// =============================================================================

func (a *App) Session() *session.Store {
	return a.sess
}

func (a *App) Presence() *presence.Overlay {
	return a.presence
}

// Connected reports whether the realtime channel is open.
func (a *App) Connected() bool {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	return h != nil && h.Connected()
}

// Unread is the running count of inbound messages since connect.
func (a *App) Unread() int {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h == nil {
		return 0
	}
	return h.Unread()
}

func (a *App) ResetUnread() {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h != nil {
		h.ResetUnread()
	}
}

// env hands screens the relay rather than the socket, so a screen built
// before the socket opens still hears events once it does.
func (a *App) env() viewmodel.Env {
	return viewmodel.Env{Bus: a.bus, Session: a.sess, Log: a.log}
}
