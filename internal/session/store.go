package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"socialsync/internal/model"
)

// Authenticator is the part of the gateway the session store needs.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*model.AuthResponse, error)
	Me(ctx context.Context, token string) (*model.User, error)
}

// Session is the authenticated identity of this client.
type Session struct {
	User  *model.User
	Token string
}

// Listener is told about every login (non-nil session) and logout (nil).
type Listener func(s *Session)

// Store holds the current session and keeps it in durable storage.
type Store struct {
	auth    Authenticator
	storage Storage
	sealer  *Sealer
	log     *zap.Logger
	now     func() time.Time
	// googleAud, when set, is the only audience accepted on Google ID tokens.
	googleAud string

	mu        sync.RWMutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

func NewStore(auth Authenticator, storage Storage, sealer *Sealer, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{
		auth:      auth,
		storage:   storage,
		sealer:    sealer,
		log:       log.Named("session"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Login validates the credentials locally, then exchanges them for a session.
func (s *Store) Login(ctx context.Context, creds model.Credentials) (*Session, error) {
	if err := model.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.log.Info("login failed", zap.String("email", creds.Email), zap.Error(err))
		return nil, err
	}
	return s.establish(ctx, resp)
}

func (s *Store) Register(ctx context.Context, req model.RegisterRequest) (*Session, error) {
	if err := model.ValidateRegistration(req); err != nil {
		return nil, err
	}
	resp, err := s.auth.Register(ctx, req)
	if err != nil {
		s.log.Info("register failed", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}
	return s.establish(ctx, resp)
}

// RequireGoogleAudience makes LoginWithGoogle reject ID tokens minted for
// another OAuth client before they reach the backend.
func (s *Store) RequireGoogleAudience(clientID string) {
	s.googleAud = clientID
}

func (s *Store) LoginWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, &model.ValidationError{Field: "credential", Reason: "required"}
	}
	if s.googleAud != "" && !hasAudience(idToken, s.googleAud) {
		return nil, &model.ValidationError{Field: "credential", Reason: "issued for another client"}
	}
	resp, err := s.auth.LoginWithGoogle(ctx, idToken)
	if err != nil {
		s.log.Info("google login failed", zap.Error(err))
		return nil, err
	}
	return s.establish(ctx, resp)
}

func (s *Store) establish(ctx context.Context, resp *model.AuthResponse) (*Session, error) {
	sess := &Session{User: resp.User, Token: resp.Token}
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.log.Info("logged in", zap.String("user_id", sess.User.ID))
	s.notify(sess)
	return sess, nil
}

func (s *Store) persist(ctx context.Context, sess *Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	sealed, err := s.sealer.Seal(sess.Token)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyUser, userJSON); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	if err := s.storage.Set(ctx, KeyToken, []byte(sealed)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Logout clears the session from memory and storage. Memory is cleared even
// when storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	err := s.storage.Delete(ctx, KeyUser, KeyToken)
	if err != nil {
		s.log.Warn("clear stored session failed", zap.Error(err))
		err = fmt.Errorf("clear session: %w", err)
	}
	if had {
		s.log.Info("logged out")
		s.notify(nil)
	}
	return err
}

// Restore reloads a persisted session. A missing or expired token yields
// ErrNoSession and clears whatever was stored. When the backend is reachable
// the cached user is refreshed from /auth/me; a rejected token logs out.
func (s *Store) Restore(ctx context.Context) (*Session, error) {
	rawToken, err := s.storage.Get(ctx, KeyToken)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, model.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	token, err := s.sealer.Open(string(rawToken))
	if err != nil {
		s.log.Warn("stored token unreadable", zap.Error(err))
		_ = s.storage.Delete(ctx, KeyUser, KeyToken)
		return nil, model.ErrNoSession
	}
	if s.expired(token) {
		s.log.Info("stored token expired")
		_ = s.storage.Delete(ctx, KeyUser, KeyToken)
		return nil, model.ErrNoSession
	}

	var user model.User
	rawUser, err := s.storage.Get(ctx, KeyUser)
	if err == nil {
		err = json.Unmarshal(rawUser, &user)
	}
	if err != nil {
		s.log.Warn("stored user unreadable", zap.Error(err))
		_ = s.storage.Delete(ctx, KeyUser, KeyToken)
		return nil, model.ErrNoSession
	}

	sess := &Session{User: &user, Token: token}
	if s.auth != nil {
		fresh, err := s.auth.Me(ctx, token)
		switch {
		case errors.Is(err, model.ErrUnauthorized):
			_ = s.storage.Delete(ctx, KeyUser, KeyToken)
			return nil, model.ErrNoSession
		case err != nil:
			s.log.Warn("refresh user failed, using stored copy", zap.Error(err))
		default:
			sess.User = fresh
			if err := s.persist(ctx, sess); err != nil {
				s.log.Warn("persist refreshed user failed", zap.Error(err))
			}
		}
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.log.Info("session restored", zap.String("user_id", sess.User.ID))
	s.notify(sess)
	return sess, nil
}

func hasAudience(idToken, want string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return false
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return false
	}
	return slices.Contains(aud, want)
}

// expired reports whether token is a JWT whose exp has passed. Opaque tokens never expire here.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// UpdateUser replaces the cached user after a profile edit or approval event.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return model.ErrNoSession
	}
	if u.ID != s.current.User.ID {
		s.mu.Unlock()
		return fmt.Errorf("update user %s: not the session user", u.ID)
	}
	sess := &Session{User: u, Token: s.current.Token}
	s.current = sess
	s.mu.Unlock()

	return s.persist(ctx, sess)
}

// Current returns the session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) CurrentUser() (*model.User, bool) {
	if sess := s.Current(); sess != nil {
		return sess.User, true
	}
	return nil, false
}

func (s *Store) CurrentToken() (string, bool) {
	if sess := s.Current(); sess != nil {
		return sess.Token, true
	}
	return "", false
}

// OnChange registers l and returns a function removing it.
func (s *Store) OnChange(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(sess *Session) {
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.RUnlock()

	for _, l := range ls {
		l(sess)
	}
}
