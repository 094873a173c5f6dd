package viewmodel

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// OnlineLookup resolves live presence, falling back to the fetched flag.
type OnlineLookup interface {
	IsOnline(userID string, fallback bool) bool
}

// Profile shows one user: their record, their posts and, for other users,
// whether the viewer may see their private album.
type Profile struct {
	api      ProfileAPI
	env      Env
	presence OnlineLookup
	log      *zap.Logger
	subs     *subscriptions
	pending  *pendingEdits
	userID   string

	mu    sync.Mutex
	user  *model.User
	posts *Collection[model.Post]
	album *model.AlbumAccessCheck
}

func NewProfile(api ProfileAPI, env Env, presence OnlineLookup, userID string) *Profile {
	p := &Profile{
		api:      api,
		env:      env,
		presence: presence,
		log:      env.logger("profile").With(zap.String("profile_id", userID)),
		subs:     &subscriptions{bus: env.Bus},
		pending:  newPendingEdits(),
		userID:   userID,
		posts:    NewCollection(func(p model.Post) string { return p.ID }, nil),
	}
	p.subs.on(realtime.EventPhotoApproved, p.onPhotoApproved)
	p.subs.on(realtime.EventPostDeleted, p.onPostRemoved)
	p.subs.on(realtime.EventPostRejected, p.onPostRemoved)
	p.subs.on(realtime.EventPostApproved, p.onPostApproved)
	p.subs.on(realtime.EventAlbumAccessResponse, p.onAlbumDecision)
	return p
}

func (p *Profile) isSelf() bool {
	return p.env.selfID() == p.userID
}

// Hydrate loads the user, their posts and the album state concurrently.
func (p *Profile) Hydrate(ctx context.Context) error {
	self, token, err := p.env.credentials()
	if err != nil {
		return err
	}

	var (
		user  *model.User
		posts []model.Post
		album *model.AlbumAccessCheck
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = p.api.GetUser(gctx, token, p.userID)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = p.api.UserPosts(gctx, token, p.userID)
		return err
	})
	if self.ID != p.userID {
		g.Go(func() error {
			var err error
			album, err = p.api.CheckAlbumAccess(gctx, token, p.userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		p.log.Warn("load profile failed", zap.Error(err))
		return err
	}

	visible := posts[:0]
	for _, post := range posts {
		if post.VisibleTo(self.ID) {
			visible = append(visible, post)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = user
	p.posts.Replace(visible)
	p.album = album
	return nil
}

func (p *Profile) onPhotoApproved(ev realtime.Event) {
	if !p.isSelf() {
		return
	}
	var a realtime.PhotoApproved
	if err := ev.Decode(&a); err != nil || a.URL == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user != nil {
		ApplyPhotoApproval(p.user, a)
	}
}

// ApplyPhotoApproval puts an approved photo where its subtype says.
func ApplyPhotoApproval(u *model.User, a realtime.PhotoApproved) {
	switch a.Subtype {
	case realtime.PhotoAvatar:
		u.Avatar = a.URL
	case realtime.PhotoGallery:
		for _, g := range u.Gallery {
			if g == a.URL {
				return
			}
		}
		u.Gallery = append(append([]string(nil), u.Gallery...), a.URL)
	}
}

func (p *Profile) onPostRemoved(ev realtime.Event) {
	id, err := realtime.DecodeID(ev.Payload())
	if err != nil {
		return
	}
	p.mu.Lock()
	p.posts.RemoveByID(id)
	p.mu.Unlock()
}

func (p *Profile) onPostApproved(ev realtime.Event) {
	var post model.Post
	if err := ev.Decode(&post); err != nil || post.Validate() != nil {
		id, err := realtime.DecodeID(ev.Payload())
		if err != nil {
			return
		}
		p.mu.Lock()
		p.posts.Update(id, func(existing *model.Post) { existing.IsApproved = true })
		p.mu.Unlock()
		return
	}
	if post.Author.ID != p.userID {
		return
	}
	post.IsApproved = true
	p.mu.Lock()
	if !p.posts.ReplaceByID(post.ID, post) {
		p.posts.InsertIfAbsent(post, Front)
	}
	p.mu.Unlock()
}

func (p *Profile) onAlbumDecision(ev realtime.Event) {
	var d realtime.AlbumAccessDecided
	if err := ev.Decode(&d); err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.album == nil || p.album.RequestID != d.RequestID || p.album.Status.Terminal() {
		return
	}
	p.album.Status = d.Status
	p.album.HasAccess = d.Status == model.AlbumAccessApproved
}

// SetFavorite favorites or unfavorites the profile user.
func (p *Profile) SetFavorite(ctx context.Context, favorite bool) error {
	return p.toggleSelfList(ctx, favorite,
		func(u *model.User) *[]string { return &u.Favorites },
		func(token string) error {
			if favorite {
				return p.api.Favorite(ctx, token, p.userID)
			}
			return p.api.Unfavorite(ctx, token, p.userID)
		})
}

// SetBlocked blocks or unblocks the profile user.
func (p *Profile) SetBlocked(ctx context.Context, blocked bool) error {
	return p.toggleSelfList(ctx, blocked,
		func(u *model.User) *[]string { return &u.BlockedUsers },
		func(token string) error {
			if blocked {
				return p.api.Block(ctx, token, p.userID)
			}
			return p.api.Unblock(ctx, token, p.userID)
		})
}

// toggleSelfList flips p.userID in one of the viewer's own id lists, in the
// session first and then on the server. A failure flips back only that id.
func (p *Profile) toggleSelfList(ctx context.Context, add bool, list func(*model.User) *[]string, call func(token string) error) error {
	self, token, err := p.env.credentials()
	if err != nil {
		return err
	}
	if self.ID == p.userID {
		return &model.ValidationError{Field: "userId", Reason: "cannot target yourself"}
	}

	had := false
	for _, id := range *list(self) {
		if id == p.userID {
			had = true
		}
	}
	set := func(present bool) {
		current, ok := p.env.Session.CurrentUser()
		if !ok {
			return
		}
		updated := *current
		ids := list(&updated)
		*ids = withID(*ids, p.userID, present)
		if err := p.env.Session.UpdateUser(ctx, &updated); err != nil {
			p.log.Warn("update session user failed", zap.Error(err))
		}
	}

	set(add)
	marker := p.pending.begin(func() { set(had) })
	if err := call(token); err != nil {
		p.pending.revert(marker)
		p.log.Warn("profile action failed", zap.Bool("add", add), zap.Error(err))
		return err
	}
	p.pending.commit(marker)
	return nil
}

func withID(ids []string, id string, present bool) []string {
	out := make([]string, 0, len(ids)+1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if present {
		out = append(out, id)
	}
	return out
}

// Report files a report against the profile user.
func (p *Profile) Report(ctx context.Context, reason, detail string) error {
	_, token, err := p.env.credentials()
	if err != nil {
		return err
	}
	r := model.Report{TargetID: p.userID, TargetType: model.ReportTargetUser, Reason: reason, Detail: detail}
	if err := model.ValidateReport(r); err != nil {
		return err
	}
	return p.api.CreateReport(ctx, token, r)
}

// RequestAlbumAccess asks the profile user for their private album. The
// album shows as pending right away.
func (p *Profile) RequestAlbumAccess(ctx context.Context) (*model.AlbumAccessRequest, error) {
	self, token, err := p.env.credentials()
	if err != nil {
		return nil, err
	}
	if self.ID == p.userID {
		return nil, &model.ValidationError{Field: "ownerId", Reason: "cannot request your own album"}
	}

	p.mu.Lock()
	prev := p.album
	if prev != nil && (prev.HasAccess || prev.Status == model.AlbumAccessPending) {
		p.mu.Unlock()
		return nil, model.ErrAlreadyDecided
	}
	p.album = &model.AlbumAccessCheck{Status: model.AlbumAccessPending}
	p.mu.Unlock()
	marker := p.pending.begin(func() {
		p.mu.Lock()
		if p.album != nil && p.album.RequestID == "" {
			p.album = prev
		}
		p.mu.Unlock()
	})

	req, err := p.api.RequestAlbumAccess(ctx, token, p.userID)
	if err != nil {
		p.pending.revert(marker)
		p.log.Warn("album access request failed", zap.Error(err))
		return nil, err
	}
	p.pending.commit(marker)

	p.mu.Lock()
	p.album = &model.AlbumAccessCheck{
		HasAccess: req.Status == model.AlbumAccessApproved,
		Status:    req.Status,
		RequestID: req.ID,
	}
	p.mu.Unlock()
	return req, nil
}

// User returns the loaded user with live presence applied.
func (p *Profile) User() (*model.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil, false
	}
	u := *p.user
	if p.presence != nil {
		u.IsOnline = p.presence.IsOnline(u.ID, u.IsOnline)
	}
	return &u, true
}

func (p *Profile) Posts() []model.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posts.Items()
}

// Album returns the album access state, nil on the viewer's own profile.
func (p *Profile) Album() *model.AlbumAccessCheck {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.album == nil {
		return nil
	}
	a := *p.album
	return &a
}

// IsFavorite reports whether the viewer has favorited this user.
func (p *Profile) IsFavorite() bool {
	u, ok := p.env.Session.CurrentUser()
	return ok && u.HasFavorite(p.userID)
}

func (p *Profile) IsBlocked() bool {
	u, ok := p.env.Session.CurrentUser()
	return ok && u.HasBlocked(p.userID)
}

func (p *Profile) Close() {
	p.subs.close()
}
