package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialsync/internal/model"
)

// Options configures the connection manager.
type Options struct {
	Dialer     *websocket.Dialer
	Toaster    Toaster
	OnBan      func(AccountBanned)
	IsFavorite func(userID string) bool
	Log        *zap.Logger
}

// Manager owns at most one Handle, belonging to the logged-in user.
type Manager struct {
	url  string
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	current *Handle
}

func NewManager(socketBase string, opts Options) (*Manager, error) {
	u, err := SocketURL(socketBase)
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{url: u, opts: opts, log: log.Named("realtime")}, nil
}

// Connect returns the user's handle, dialing when no socket is attached.
// Connecting as a different user tears down the previous handle first.
// A handle whose socket dropped is re-dialed and keeps its subscriptions.
func (m *Manager) Connect(ctx context.Context, user *model.User, token string) (*Handle, error) {
	if user == nil || user.ID == "" {
		return nil, model.ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.current
	if h != nil && (h.userID != user.ID || h.isClosed()) {
		h.Disconnect()
		h = nil
		m.current = nil
	}
	if h != nil && h.Connected() {
		return h, nil
	}

	conn, err := Dial(ctx, m.opts.Dialer, m.url, token)
	if err != nil {
		m.log.Warn("connect failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("connect realtime: %w", err)
	}

	if h == nil {
		h = newHandle(user, m.opts, m.log)
		m.current = h
	}
	if err := h.attach(conn, user.Ref()); err != nil {
		return nil, fmt.Errorf("setup realtime: %w", err)
	}
	return h, nil
}

// Current returns the live handle or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.isClosed() {
		return nil
	}
	return m.current
}

// Disconnect tears down the current handle, if any.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	h := m.current
	m.current = nil
	m.mu.Unlock()

	if h != nil {
		h.Disconnect()
	}
}
