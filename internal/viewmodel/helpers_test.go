package viewmodel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// =============================================================================
// FAKE BUS
// =============================================================================
//
// fakeBus delivers published events synchronously and records emissions.

type emitted struct {
	Name string
	Args []interface{}
}

type fakeBus struct {
	*realtime.Emitter
	mu      sync.Mutex
	emitted []emitted
	emitErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{Emitter: realtime.NewEmitter()}
}

func (b *fakeBus) Emit(name string, args ...interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitted = append(b.emitted, emitted{Name: name, Args: args})
	return b.emitErr
}

func (b *fakeBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.emitted))
	for _, e := range b.emitted {
		out = append(out, e.Name)
	}
	return out
}

func (b *fakeBus) count(name string) int {
	n := 0
	for _, got := range b.names() {
		if got == name {
			n++
		}
	}
	return n
}

// push publishes name with payload marshaled to JSON, as the socket would.
func (b *fakeBus) push(t *testing.T, name string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", name, err)
	}
	b.Publish(realtime.Event{Name: realtime.Canonical(name), Args: []json.RawMessage{raw}})
}

// =============================================================================
// FAKE SESSION
// =============================================================================

type fakeSession struct {
	mu    sync.Mutex
	user  *model.User
	token string
}

func (s *fakeSession) CurrentUser() (*model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, false
	}
	return s.user, true
}

func (s *fakeSession) CurrentToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.user != nil
}

func (s *fakeSession) UpdateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.ErrNoSession
	}
	s.user = u
	return nil
}

// =============================================================================
// MOCK GATEWAY
// =============================================================================

type mockAPI struct {
	messagesFn      func(ctx context.Context, token, userID string) ([]model.Message, error)
	sendMessageFn   func(ctx context.Context, token string, req model.SendMessageRequest) (*model.Message, error)
	deleteMessageFn func(ctx context.Context, token, messageID string) error
	markConvReadFn  func(ctx context.Context, token, userID string) error
	requestAlbumFn  func(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error)
	respondAlbumFn  func(ctx context.Context, token, requestID string, status model.AlbumAccessStatus) (*model.AlbumAccessRequest, error)
	conversationsFn func(ctx context.Context, token string) ([]model.Conversation, error)
	feedFn          func(ctx context.Context, token string) ([]model.Post, error)
	createPostFn    func(ctx context.Context, token string, req model.CreatePostRequest) (*model.Post, error)
	deletePostFn    func(ctx context.Context, token, postID string) error
	likeFn          func(ctx context.Context, token, postID string) (*model.Post, error)
	unlikeFn        func(ctx context.Context, token, postID string) (*model.Post, error)
	addCommentFn    func(ctx context.Context, token, postID string, req model.CreateCommentRequest) (*model.Comment, error)
	editCommentFn   func(ctx context.Context, token, postID, commentID string, req model.CreateCommentRequest) (*model.Comment, error)
	deleteCommentFn func(ctx context.Context, token, postID, commentID string) error
	blockFn         func(ctx context.Context, token, userID string) error
	unblockFn       func(ctx context.Context, token, userID string) error
	favoriteFn      func(ctx context.Context, token, userID string) error
	unfavoriteFn    func(ctx context.Context, token, userID string) error
	reportFn        func(ctx context.Context, token string, r model.Report) error
	getUserFn       func(ctx context.Context, token, userID string) (*model.User, error)
	userPostsFn     func(ctx context.Context, token, userID string) ([]model.Post, error)
	checkAlbumFn    func(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error)
	notificationsFn func(ctx context.Context, token string) ([]model.Notification, error)
	markNotifFn     func(ctx context.Context, token, id string) error
	markAllNotifFn  func(ctx context.Context, token string) error

	mu      sync.Mutex
	reports []model.Report
}

var errNotStubbed = errors.New("not stubbed")

func (m *mockAPI) Messages(ctx context.Context, token, userID string) ([]model.Message, error) {
	if m.messagesFn != nil {
		return m.messagesFn(ctx, token, userID)
	}
	return nil, nil
}

func (m *mockAPI) SendMessage(ctx context.Context, token string, req model.SendMessageRequest) (*model.Message, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, token, req)
	}
	return nil, errNotStubbed
}

func (m *mockAPI) DeleteMessage(ctx context.Context, token, messageID string) error {
	if m.deleteMessageFn != nil {
		return m.deleteMessageFn(ctx, token, messageID)
	}
	return nil
}

func (m *mockAPI) MarkConversationRead(ctx context.Context, token, userID string) error {
	if m.markConvReadFn != nil {
		return m.markConvReadFn(ctx, token, userID)
	}
	return nil
}

func (m *mockAPI) RequestAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error) {
	if m.requestAlbumFn != nil {
		return m.requestAlbumFn(ctx, token, ownerID)
	}
	return nil, errNotStubbed
}

func (m *mockAPI) RespondAlbumAccess(ctx context.Context, token, requestID string, status model.AlbumAccessStatus) (*model.AlbumAccessRequest, error) {
	if m.respondAlbumFn != nil {
		return m.respondAlbumFn(ctx, token, requestID, status)
	}
	return &model.AlbumAccessRequest{ID: requestID, Status: status}, nil
}

func (m *mockAPI) Conversations(ctx context.Context, token string) ([]model.Conversation, error) {
	if m.conversationsFn != nil {
		return m.conversationsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) Feed(ctx context.Context, token string) ([]model.Post, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) CreatePost(ctx context.Context, token string, req model.CreatePostRequest) (*model.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, token, req)
	}
	return nil, errNotStubbed
}

func (m *mockAPI) DeletePost(ctx context.Context, token, postID string) error {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, token, postID)
	}
	return nil
}

func (m *mockAPI) LikePost(ctx context.Context, token, postID string) (*model.Post, error) {
	if m.likeFn != nil {
		return m.likeFn(ctx, token, postID)
	}
	return nil, nil
}

func (m *mockAPI) UnlikePost(ctx context.Context, token, postID string) (*model.Post, error) {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, token, postID)
	}
	return nil, nil
}

func (m *mockAPI) AddComment(ctx context.Context, token, postID string, req model.CreateCommentRequest) (*model.Comment, error) {
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, token, postID, req)
	}
	return nil, errNotStubbed
}

func (m *mockAPI) UpdateComment(ctx context.Context, token, postID, commentID string, req model.CreateCommentRequest) (*model.Comment, error) {
	if m.editCommentFn != nil {
		return m.editCommentFn(ctx, token, postID, commentID, req)
	}
	return nil, errNotStubbed
}

func (m *mockAPI) DeleteComment(ctx context.Context, token, postID, commentID string) error {
	if m.deleteCommentFn != nil {
		return m.deleteCommentFn(ctx, token, postID, commentID)
	}
	return nil
}

func (m *mockAPI) Block(ctx context.Context, token, userID string) error {
	if m.blockFn != nil {
		return m.blockFn(ctx, token, userID)
	}
	return nil
}

func (m *mockAPI) Unblock(ctx context.Context, token, userID string) error {
	if m.unblockFn != nil {
		return m.unblockFn(ctx, token, userID)
	}
	return nil
}

func (m *mockAPI) Favorite(ctx context.Context, token, userID string) error {
	if m.favoriteFn != nil {
		return m.favoriteFn(ctx, token, userID)
	}
	return nil
}

func (m *mockAPI) Unfavorite(ctx context.Context, token, userID string) error {
	if m.unfavoriteFn != nil {
		return m.unfavoriteFn(ctx, token, userID)
	}
	return nil
}

func (m *mockAPI) CreateReport(ctx context.Context, token string, r model.Report) error {
	m.mu.Lock()
	m.reports = append(m.reports, r)
	m.mu.Unlock()
	if m.reportFn != nil {
		return m.reportFn(ctx, token, r)
	}
	return nil
}

func (m *mockAPI) GetUser(ctx context.Context, token, userID string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, token, userID)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockAPI) UserPosts(ctx context.Context, token, userID string) ([]model.Post, error) {
	if m.userPostsFn != nil {
		return m.userPostsFn(ctx, token, userID)
	}
	return nil, nil
}

func (m *mockAPI) CheckAlbumAccess(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
	if m.checkAlbumFn != nil {
		return m.checkAlbumFn(ctx, token, ownerID)
	}
	return &model.AlbumAccessCheck{}, nil
}

func (m *mockAPI) Notifications(ctx context.Context, token string) ([]model.Notification, error) {
	if m.notificationsFn != nil {
		return m.notificationsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) MarkNotificationRead(ctx context.Context, token, id string) error {
	if m.markNotifFn != nil {
		return m.markNotifFn(ctx, token, id)
	}
	return nil
}

func (m *mockAPI) MarkAllNotificationsRead(ctx context.Context, token string) error {
	if m.markAllNotifFn != nil {
		return m.markAllNotifFn(ctx, token)
	}
	return nil
}

// =============================================================================
// FIXTURES
// =============================================================================

const (
	aliceID = "64b7f0c2a1b2c3d4e5f60001"
	bobID   = "64b7f0c2a1b2c3d4e5f60002"
	carolID = "64b7f0c2a1b2c3d4e5f60003"
)

func newEnv(self *model.User) (Env, *fakeBus, *fakeSession) {
	bus := newFakeBus()
	sess := &fakeSession{user: self, token: "tok-" + self.ID}
	return Env{Bus: bus, Session: sess}, bus, sess
}

func alice() *model.User {
	return &model.User{ID: aliceID, Name: "Alice"}
}

func msg(id, from, to, text string) model.Message {
	return model.Message{
		ID:       id,
		Sender:   model.UserRef{ID: from},
		Receiver: model.UserRef{ID: to},
		Content:  text,
		Type:     model.MessageTypePlain,
	}
}

func post(id, author string, approved bool) model.Post {
	return model.Post{ID: id, Author: model.UserRef{ID: author}, Content: "post " + id, IsApproved: approved}
}
