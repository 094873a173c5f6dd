package viewmodel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// Bus is the realtime channel as seen by a screen.
type Bus interface {
	On(name string, fn realtime.Handler) realtime.Subscription
	Off(sub realtime.Subscription)
	Emit(name string, args ...interface{}) error
}

// Session gives screens the logged-in identity.
type Session interface {
	CurrentUser() (*model.User, bool)
	CurrentToken() (string, bool)
	UpdateUser(ctx context.Context, u *model.User) error
}

// Env carries what every screen shares.
type Env struct {
	Bus     Bus
	Session Session
	Log     *zap.Logger
}

func (e Env) logger(name string) *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log.Named(name)
}

// credentials returns the current user and token or ErrNoSession.
func (e Env) credentials() (*model.User, string, error) {
	u, ok := e.Session.CurrentUser()
	if !ok {
		return nil, "", model.ErrNoSession
	}
	token, ok := e.Session.CurrentToken()
	if !ok {
		return nil, "", model.ErrNoSession
	}
	return u, token, nil
}

func (e Env) selfID() string {
	if u, ok := e.Session.CurrentUser(); ok {
		return u.ID
	}
	return ""
}

// emit sends on the bus when there is one. Realtime errors are logged, not returned:
// emissions are hints to other clients and never part of an action's outcome.
func (e Env) emit(log *zap.Logger, name string, args ...interface{}) {
	if e.Bus == nil {
		return
	}
	if err := e.Bus.Emit(name, args...); err != nil {
		log.Debug("emit failed", zap.String("event", name), zap.Error(err))
	}
}

// subscriptions tracks a screen's handlers so Close can drop them all.
type subscriptions struct {
	mu   sync.Mutex
	bus  Bus
	subs []realtime.Subscription
}

func (s *subscriptions) on(name string, fn realtime.Handler) {
	if s.bus == nil {
		return
	}
	sub := s.bus.On(name, fn)
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

func (s *subscriptions) close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		s.bus.Off(sub)
	}
}

// =============================================================================
// Gateway slices each screen depends on
// =============================================================================

type ChatAPI interface {
	Messages(ctx context.Context, token, userID string) ([]model.Message, error)
	SendMessage(ctx context.Context, token string, req model.SendMessageRequest) (*model.Message, error)
	DeleteMessage(ctx context.Context, token, messageID string) error
	MarkConversationRead(ctx context.Context, token, userID string) error
	RequestAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error)
	RespondAlbumAccess(ctx context.Context, token, requestID string, status model.AlbumAccessStatus) (*model.AlbumAccessRequest, error)
}

type ConversationAPI interface {
	Conversations(ctx context.Context, token string) ([]model.Conversation, error)
	MarkConversationRead(ctx context.Context, token, userID string) error
}

type FeedAPI interface {
	Feed(ctx context.Context, token string) ([]model.Post, error)
	CreatePost(ctx context.Context, token string, req model.CreatePostRequest) (*model.Post, error)
	DeletePost(ctx context.Context, token, postID string) error
	LikePost(ctx context.Context, token, postID string) (*model.Post, error)
	UnlikePost(ctx context.Context, token, postID string) (*model.Post, error)
	AddComment(ctx context.Context, token, postID string, req model.CreateCommentRequest) (*model.Comment, error)
	UpdateComment(ctx context.Context, token, postID, commentID string, req model.CreateCommentRequest) (*model.Comment, error)
	DeleteComment(ctx context.Context, token, postID, commentID string) error
	Block(ctx context.Context, token, userID string) error
	CreateReport(ctx context.Context, token string, r model.Report) error
}

type ProfileAPI interface {
	GetUser(ctx context.Context, token, userID string) (*model.User, error)
	UserPosts(ctx context.Context, token, userID string) ([]model.Post, error)
	CheckAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error)
	RequestAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error)
	Favorite(ctx context.Context, token, userID string) error
	Unfavorite(ctx context.Context, token, userID string) error
	Block(ctx context.Context, token, userID string) error
	Unblock(ctx context.Context, token, userID string) error
	CreateReport(ctx context.Context, token string, r model.Report) error
}

type NotificationAPI interface {
	Notifications(ctx context.Context, token string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, token, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, token string) error
}
