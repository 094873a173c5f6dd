package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"socialsync/internal/gateway"
	"socialsync/internal/model"
	"socialsync/internal/realtime"
	"socialsync/internal/session"
)

// =============================================================================
// Fake backend: REST resources plus a Socket.IO endpoint
// =============================================================================

const (
	aliceID = "64b7f0c2a1b2c3d4e5f60001"
	bobID   = "64b7f0c2a1b2c3d4e5f60002"
	carolID = "64b7f0c2a1b2c3d4e5f60003"
)

type backend struct {
	srv      *httptest.Server
	sockets  chan *websocket.Conn
	noSocket atomic.Bool

	mu           sync.Mutex
	locations    []model.Location
	profileEdits int
	writeMu      sync.Mutex
}

func newBackend(t *testing.T, noSocket bool) *backend {
	t.Helper()
	b := &backend{sockets: make(chan *websocket.Conn, 4)}
	b.noSocket.Store(noSocket)

	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
			return
		}
		writeJSON(w, model.AuthResponse{
			User:  &model.User{ID: aliceID, Name: "Alice", Favorites: []string{bobID}},
			Token: "tok-alice",
		})
	})
	r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Post{
			{ID: "p1", Author: model.UserRef{ID: bobID}, Content: "hi", IsApproved: true},
			{ID: "p2", Author: model.UserRef{ID: bobID}, Content: "pending", IsApproved: false},
		})
	})
	r.Get("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		writeJSON(w, model.Post{ID: id, Author: model.UserRef{ID: bobID}, IsApproved: id == "p1"})
	})
	r.Put("/users/location", func(w http.ResponseWriter, r *http.Request) {
		var loc model.Location
		_ = json.NewDecoder(r.Body).Decode(&loc)
		b.mu.Lock()
		b.locations = append(b.locations, loc)
		b.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.User{
			{ID: aliceID, Name: "Alice"},
			{ID: bobID, Name: "Bob", IsOnline: true},
			{ID: carolID, Name: "Carol"},
		})
	})
	r.Put("/users/profile", func(w http.ResponseWriter, r *http.Request) {
		var req model.UpdateProfileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		u := model.User{ID: aliceID, Name: "Alice", Favorites: []string{bobID}}
		if req.Bio != nil {
			u.Bio = *req.Bio
		}
		b.mu.Lock()
		b.profileEdits++
		b.mu.Unlock()
		writeJSON(w, u)
	})
	r.Get("/settings/public", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.Settings{MaintenanceMode: true})
	})
	r.HandleFunc("/socket.io/", b.serveSocket(t))

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) serveSocket(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		if b.noSocket.Load() {
			http.NotFound(w, r)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"e1","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`))
		if _, data, err := ws.ReadMessage(); err != nil || !strings.HasPrefix(string(data), "40") {
			ws.Close()
			return
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"s1"}`))
		b.sockets <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (b *backend) socket(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-b.sockets:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func (b *backend) push(t *testing.T, ws *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	frame, err := json.Marshal([]interface{}{event, payload})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := ws.WriteMessage(websocket.TextMessage, append([]byte("42"), frame...)); err != nil {
		t.Fatalf("push %s: %v", event, err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// Test doubles
// =============================================================================

type locatorFunc func(ctx context.Context) (model.Location, error)

func (f locatorFunc) Locate(ctx context.Context) (model.Location, error) { return f(ctx) }

type fakeUploader struct {
	got []byte
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte) (*model.UploadResult, error) {
	u.got = data
	return &model.UploadResult{URL: "https://img.example/x.jpg"}, nil
}

func newApp(t *testing.T, b *backend, mut func(*Deps)) *App {
	t.Helper()
	gw, err := gateway.NewClient(b.srv.URL, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	d := Deps{
		Gateway:   gw,
		Session:   session.NewStore(gw, session.NewMemoryStorage(), nil, nil),
		SocketURL: b.srv.URL,
	}
	if mut != nil {
		mut(&d)
	}
	a, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func login(t *testing.T, a *App) {
	t.Helper()
	if _, err := a.Login(context.Background(), model.Credentials{Email: "alice@example.com", Password: "secret"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

// =============================================================================
// Session and realtime lifecycle
// =============================================================================

func TestApp_LoginConnectsAndLogoutDisconnects(t *testing.T) {
	b := newBackend(t, false)
	a := newApp(t, b, nil)

	login(t, a)
	ws := b.socket(t)
	if !a.Connected() {
		t.Fatal("login should open the realtime channel")
	}

	b.push(t, ws, "user status", map[string]interface{}{"userId": bobID, "name": "Bob", "isOnline": true})
	eventually(t, "presence update", func() bool { return a.IsOnline(bobID, false) })

	select {
	case toast := <-a.Toasts():
		if toast.Text != "Bob is online" {
			t.Fatalf("toast = %q", toast.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("favorite coming online should raise a toast")
	}

	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if a.Connected() || a.Session().Current() != nil {
		t.Fatal("logout should drop socket and session")
	}
	if a.IsOnline(bobID, false) {
		t.Fatal("presence should reset on logout")
	}
}

func TestApp_PhotoApprovedUpdatesSessionUser(t *testing.T) {
	b := newBackend(t, false)
	a := newApp(t, b, nil)
	login(t, a)
	ws := b.socket(t)

	b.push(t, ws, "photo approved", map[string]string{"type": "avatar", "url": "https://img.example/a.jpg"})
	eventually(t, "avatar update", func() bool {
		u, ok := a.Session().CurrentUser()
		return ok && u.Avatar == "https://img.example/a.jpg"
	})
}

func TestApp_BanForcesLogout(t *testing.T) {
	b := newBackend(t, false)
	a := newApp(t, b, nil)
	login(t, a)
	ws := b.socket(t)

	b.push(t, ws, realtime.EventAccountBanned, map[string]string{"reason": "spam"})
	eventually(t, "forced logout", func() bool { return a.Session().Current() == nil })

	if reason, ok := a.BanReason(); !ok || reason != "spam" {
		t.Fatalf("ban reason = %q %v", reason, ok)
	}
	if a.Connected() {
		t.Fatal("socket should be closed after a ban")
	}
}

func TestApp_LoginFailureLeavesNoSession(t *testing.T) {
	b := newBackend(t, false)
	a := newApp(t, b, nil)

	_, err := a.Login(context.Background(), model.Credentials{Email: "alice@example.com", Password: "wrong"})
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if a.Session().Current() != nil || a.Connected() {
		t.Fatal("failed login must not create a session")
	}
}

func TestApp_WorksWithoutRealtime(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	if a.Connected() {
		t.Fatal("socket endpoint is down")
	}
	feed, err := a.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	defer feed.Close()
	if posts := feed.Posts(); len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("feed = %+v", posts)
	}
	if err := a.Reconnect(context.Background()); err == nil {
		t.Fatal("reconnect should report the socket failure")
	}
}

func TestApp_ScreenOpenedOfflineHearsEventsAfterReconnect(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	feed, err := a.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	defer feed.Close()

	b.noSocket.Store(false)
	if err := a.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	ws := b.socket(t)

	b.push(t, ws, realtime.EventNewPost, model.Post{ID: "p9", Author: model.UserRef{ID: bobID}, Content: "late", IsApproved: true})
	eventually(t, "new post on the offline-built feed", func() bool {
		posts := feed.Posts()
		return len(posts) == 2 && posts[0].ID == "p9"
	})

	// Reconnecting on a live socket keeps the feed subscribed.
	if err := a.Reconnect(context.Background()); err != nil {
		t.Fatalf("second Reconnect: %v", err)
	}
	b.push(t, ws, realtime.EventPostDeleted, "p9")
	eventually(t, "post removed", func() bool { return len(feed.Posts()) == 1 })
}

func TestApp_ScreensNeedSession(t *testing.T) {
	b := newBackend(t, false)
	a := newApp(t, b, nil)

	if _, err := a.Feed(context.Background()); !errors.Is(err, model.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := a.Reconnect(context.Background()); !errors.Is(err, model.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

// =============================================================================
// Posts, location, settings, uploads
// =============================================================================

func TestApp_PostHidesPendingPostsOfOthers(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	if p, err := a.Post(context.Background(), "p1"); err != nil || p.ID != "p1" {
		t.Fatalf("Post p1: %+v %v", p, err)
	}
	if _, err := a.Post(context.Background(), "p2"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("pending post should be hidden, got %v", err)
	}
}

func TestApp_UpdateLocation(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, func(d *Deps) {
		d.Locator = locatorFunc(func(ctx context.Context) (model.Location, error) {
			return model.Location{Latitude: 10.76, Longitude: 106.66}, nil
		})
	})
	login(t, a)

	if err := a.UpdateLocation(context.Background()); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	b.mu.Lock()
	sent := len(b.locations)
	b.mu.Unlock()
	if sent != 1 {
		t.Fatalf("expected one location update, got %d", sent)
	}
	u, _ := a.Session().CurrentUser()
	if u.Location == nil || u.Location.Latitude != 10.76 {
		t.Fatalf("session location = %+v", u.Location)
	}
}

func TestApp_UpdateLocationTimesOut(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, func(d *Deps) {
		d.GeoTimeout = 20 * time.Millisecond
		d.Locator = locatorFunc(func(ctx context.Context) (model.Location, error) {
			<-ctx.Done()
			return model.Location{}, ctx.Err()
		})
	})
	login(t, a)

	if err := a.UpdateLocation(context.Background()); err != nil {
		t.Fatalf("timeout should not be an error, got %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.locations) != 0 {
		t.Fatal("no location should be sent after a timeout")
	}
}

func TestApp_Settings(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)

	s, err := a.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if !s.MaintenanceMode || s.AdsEnabled {
		t.Fatalf("settings = %+v", s)
	}
}

func TestApp_UploadImageNormalizes(t *testing.T) {
	up := &fakeUploader{}
	b := newBackend(t, true)
	a := newApp(t, b, func(d *Deps) { d.Uploader = up })

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := a.UploadImage(context.Background(), buf.Bytes(), true); !errors.Is(err, model.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	login(t, a)

	res, err := a.UploadImage(context.Background(), buf.Bytes(), true)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if res.URL == "" {
		t.Fatal("missing hosted url")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(up.got))
	if err != nil {
		t.Fatalf("decode uploaded: %v", err)
	}
	if format != "jpeg" || cfg.Width != model.AvatarEdge || cfg.Height != model.AvatarEdge {
		t.Fatalf("uploaded %s %dx%d", format, cfg.Width, cfg.Height)
	}

	if _, err := a.UploadImage(context.Background(), []byte("not an image"), false); !errors.Is(err, model.ErrInvalidImageType) {
		t.Fatalf("expected ErrInvalidImageType, got %v", err)
	}
}

func TestApp_RegisterDeviceValidates(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	if err := a.RegisterDevice(context.Background(), "push-token", "blackberry"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// =============================================================================
// Account
// =============================================================================

func TestApp_DiscoverSkipsSelfAndBlocked(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	u, _ := a.Session().CurrentUser()
	blocked := *u
	blocked.BlockedUsers = []string{carolID}
	if err := a.Session().UpdateUser(context.Background(), &blocked); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	users, err := a.Discover(context.Background(), gateway.DiscoverFilter{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(users) != 1 || users[0].ID != bobID || !users[0].IsOnline {
		t.Fatalf("expected only bob (online), got %+v", users)
	}
}

func TestApp_UpdateProfile(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)

	bio := "hello"
	if _, err := a.UpdateProfile(context.Background(), model.UpdateProfileRequest{Bio: &bio}); !errors.Is(err, model.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	login(t, a)

	young := 17
	if _, err := a.UpdateProfile(context.Background(), model.UpdateProfileRequest{Age: &young}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for age, got %v", err)
	}
	dup := model.UpdateProfileRequest{Gallery: []string{"a.jpg", "a.jpg"}}
	if _, err := a.UpdateProfile(context.Background(), dup); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for gallery, got %v", err)
	}

	u, err := a.UpdateProfile(context.Background(), model.UpdateProfileRequest{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Bio != "hello" {
		t.Fatalf("bio = %q", u.Bio)
	}
	if cur, _ := a.Session().CurrentUser(); cur.Bio != "hello" {
		t.Fatal("session user should carry the edit")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.profileEdits != 1 {
		t.Fatalf("backend edits = %d, validation failures must not reach it", b.profileEdits)
	}
}

func TestApp_RequestVerificationValidates(t *testing.T) {
	b := newBackend(t, true)
	a := newApp(t, b, nil)
	login(t, a)

	if err := a.RequestVerification(context.Background(), " "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
