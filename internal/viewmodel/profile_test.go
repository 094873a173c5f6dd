package viewmodel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"socialsync/internal/model"
	"socialsync/internal/presence"
	"socialsync/internal/realtime"
)

func TestProfile_HydrateOtherUser(t *testing.T) {
	var albumChecks atomic.Int32
	api := &mockAPI{
		getUserFn: func(ctx context.Context, token, userID string) (*model.User, error) {
			return &model.User{ID: userID, Name: "Bob", IsOnline: false}, nil
		},
		userPostsFn: func(ctx context.Context, token, userID string) ([]model.Post, error) {
			return []model.Post{post("p1", bobID, true), post("p2", bobID, false)}, nil
		},
		checkAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
			albumChecks.Add(1)
			return &model.AlbumAccessCheck{Status: model.AlbumAccessRejected, RequestID: "r0"}, nil
		},
	}
	env, _, _ := newEnv(alice())
	overlay := presence.NewOverlay()
	p := NewProfile(api, env, overlay, bobID)
	defer p.Close()

	if err := p.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if got := postIDs(p.Posts()); !equal(got, []string{"p1"}) {
		t.Fatalf("other users' pending posts must be hidden, got %v", got)
	}
	if albumChecks.Load() != 1 || p.Album().Status != model.AlbumAccessRejected {
		t.Fatalf("album state not loaded: %+v", p.Album())
	}

	overlay.Apply(realtime.PresenceChanged{UserID: bobID, IsOnline: true})
	if u, _ := p.User(); !u.IsOnline {
		t.Fatal("live presence should override the fetched flag")
	}
}

func TestProfile_HydrateSelfShowsPendingPosts(t *testing.T) {
	api := &mockAPI{
		userPostsFn: func(ctx context.Context, token, userID string) ([]model.Post, error) {
			return []model.Post{post("p1", aliceID, true), post("p2", aliceID, false)}, nil
		},
		checkAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
			t.Error("own profile must not check album access")
			return nil, nil
		},
	}
	env, _, _ := newEnv(alice())
	p := NewProfile(api, env, nil, aliceID)
	defer p.Close()

	if err := p.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if got := postIDs(p.Posts()); !equal(got, []string{"p1", "p2"}) {
		t.Fatalf("author should see own pending posts, got %v", got)
	}
	if p.Album() != nil {
		t.Fatal("own profile has no album state")
	}
}

func TestProfile_HydrateErrorPropagates(t *testing.T) {
	boom := errors.New("user lookup failed")
	api := &mockAPI{getUserFn: func(ctx context.Context, token, userID string) (*model.User, error) {
		return nil, boom
	}}
	env, _, _ := newEnv(alice())
	p := NewProfile(api, env, nil, bobID)
	defer p.Close()

	if err := p.Hydrate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if _, ok := p.User(); ok {
		t.Fatal("failed hydrate must not publish a user")
	}
}

func TestProfile_PhotoApprovedUpdatesOwnProfile(t *testing.T) {
	env, bus, _ := newEnv(alice())
	p := NewProfile(&mockAPI{}, env, nil, aliceID)
	defer p.Close()
	if err := p.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	bus.push(t, realtime.EventPhotoApproved, map[string]string{"type": "avatar", "url": "https://img/a.jpg"})
	bus.push(t, realtime.EventPhotoApproved, map[string]string{"image": "https://img/g.jpg"})
	bus.push(t, realtime.EventPhotoApproved, map[string]string{"image": "https://img/g.jpg"})

	u, _ := p.User()
	if u.Avatar != "https://img/a.jpg" {
		t.Fatalf("avatar = %q", u.Avatar)
	}
	if len(u.Gallery) != 1 || u.Gallery[0] != "https://img/g.jpg" {
		t.Fatalf("gallery = %v", u.Gallery)
	}
}

func TestProfile_FavoriteIsOptimistic(t *testing.T) {
	var sawFavorite bool
	var p *Profile
	api := &mockAPI{favoriteFn: func(ctx context.Context, token, userID string) error {
		sawFavorite = p.IsFavorite()
		return nil
	}}
	env, _, _ := newEnv(alice())
	p = NewProfile(api, env, nil, bobID)
	defer p.Close()

	if err := p.SetFavorite(context.Background(), true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !sawFavorite || !p.IsFavorite() {
		t.Fatal("favorite should show before and after the server answers")
	}
}

func TestProfile_BlockFailureRevertsOnlyThatUser(t *testing.T) {
	var sess *fakeSession
	api := &mockAPI{blockFn: func(ctx context.Context, token, userID string) error {
		// Another screen blocks carol meanwhile.
		u, _ := sess.CurrentUser()
		updated := *u
		updated.BlockedUsers = append(append([]string(nil), u.BlockedUsers...), carolID)
		_ = sess.UpdateUser(ctx, &updated)
		return errors.New("503")
	}}
	env, _, s := newEnv(alice())
	sess = s
	p := NewProfile(api, env, nil, bobID)
	defer p.Close()

	if err := p.SetBlocked(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}
	u, _ := sess.CurrentUser()
	if u.HasBlocked(bobID) || !u.HasBlocked(carolID) {
		t.Fatalf("blocked = %v, want only carol", u.BlockedUsers)
	}
	if err := NewProfile(api, env, nil, aliceID).SetBlocked(context.Background(), true); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProfile_AlbumRequestLifecycle(t *testing.T) {
	api := &mockAPI{
		checkAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
			return &model.AlbumAccessCheck{}, nil
		},
		requestAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error) {
			return &model.AlbumAccessRequest{ID: "r1", Status: model.AlbumAccessPending}, nil
		},
	}
	env, bus, _ := newEnv(alice())
	p := NewProfile(api, env, nil, bobID)
	defer p.Close()
	if err := p.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	if _, err := p.RequestAlbumAccess(context.Background()); err != nil {
		t.Fatalf("RequestAlbumAccess: %v", err)
	}
	if a := p.Album(); a.Status != model.AlbumAccessPending || a.RequestID != "r1" {
		t.Fatalf("album = %+v", a)
	}
	if _, err := p.RequestAlbumAccess(context.Background()); !errors.Is(err, model.ErrAlreadyDecided) {
		t.Fatalf("second request while pending should fail, got %v", err)
	}

	bus.push(t, realtime.EventAlbumAccessResponse, realtime.AlbumAccessDecided{RequestID: "r1", Status: model.AlbumAccessApproved})
	bus.push(t, realtime.EventAlbumAccessResponse, realtime.AlbumAccessDecided{RequestID: "r1", Status: model.AlbumAccessRejected})
	if a := p.Album(); !a.HasAccess || a.Status != model.AlbumAccessApproved {
		t.Fatalf("first decision must stick, album = %+v", a)
	}
}

func TestProfile_AlbumRequestFailureRestores(t *testing.T) {
	api := &mockAPI{
		checkAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessCheck, error) {
			return &model.AlbumAccessCheck{Status: model.AlbumAccessRejected, RequestID: "old"}, nil
		},
		requestAlbumFn: func(ctx context.Context, token, ownerID string) (*model.AlbumAccessRequest, error) {
			return nil, errors.New("429")
		},
	}
	env, bus, _ := newEnv(alice())
	p := NewProfile(api, env, nil, bobID)
	if err := p.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if _, err := p.RequestAlbumAccess(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if a := p.Album(); a.Status != model.AlbumAccessRejected || a.RequestID != "old" {
		t.Fatalf("album should be restored, got %+v", a)
	}

	p.Close()
	if bus.Count(realtime.EventPhotoApproved) != 0 || bus.Count(realtime.EventAlbumAccessResponse) != 0 {
		t.Fatal("Close should unsubscribe")
	}
}
