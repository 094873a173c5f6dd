package viewmodel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// Feed is the home timeline. It shows approved posts only and never shows
// posts by users the viewer has blocked or been blocked by.
type Feed struct {
	api     FeedAPI
	env     Env
	log     *zap.Logger
	subs    *subscriptions
	pending *pendingEdits

	mu       sync.Mutex
	posts    *Collection[model.Post]
	hidden   map[string]bool       // blocked authors
	awaiting map[string]model.Post // own image posts waiting for moderation
}

func NewFeed(api FeedAPI, env Env) *Feed {
	f := &Feed{
		api:     api,
		env:     env,
		log:     env.logger("feed"),
		subs:    &subscriptions{bus: env.Bus},
		pending: newPendingEdits(),
		posts: NewCollection(
			func(p model.Post) string { return p.ID },
			func(p model.Post) string { return p.ClientID },
		),
		hidden:   make(map[string]bool),
		awaiting: make(map[string]model.Post),
	}
	f.subs.on(realtime.EventNewPost, f.onNewPost)
	f.subs.on(realtime.EventPostApproved, f.onPostApproved)
	f.subs.on(realtime.EventPostRejected, f.onPostRemoved)
	f.subs.on(realtime.EventPostDeleted, f.onPostRemoved)
	f.subs.on(realtime.EventPostLiked, f.onReaction(true))
	f.subs.on(realtime.EventPostUnliked, f.onReaction(false))
	f.subs.on(realtime.EventNewComment, f.onComment)
	f.subs.on(realtime.EventBlocked, f.onBlock(true))
	f.subs.on(realtime.EventUnblocked, f.onBlock(false))
	return f
}

// Hydrate replaces the feed with the server copy, minus hidden and unapproved posts.
func (f *Feed) Hydrate(ctx context.Context) error {
	self, token, err := f.env.credentials()
	if err != nil {
		return err
	}
	posts, err := f.api.Feed(ctx, token)
	if err != nil {
		f.log.Warn("load feed failed", zap.Error(err))
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range self.BlockedUsers {
		f.hidden[id] = true
	}
	visible := posts[:0]
	for _, p := range posts {
		if f.showsLocked(&p) {
			visible = append(visible, p)
		}
	}
	f.posts.Replace(visible)
	return nil
}

func (f *Feed) showsLocked(p *model.Post) bool {
	return p.IsApproved && !f.hidden[p.Author.ID]
}

func (f *Feed) onNewPost(ev realtime.Event) {
	var p model.Post
	if err := ev.Decode(&p); err != nil || p.Validate() != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showsLocked(&p) {
		f.posts.InsertIfAbsent(p, Front)
	}
}

func (f *Feed) onPostApproved(ev realtime.Event) {
	var p model.Post
	if err := ev.Decode(&p); err != nil || p.Validate() != nil {
		id, err := realtime.DecodeID(ev.Payload())
		if err != nil {
			return
		}
		p = model.Post{ID: id}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if own, ok := f.awaiting[p.ID]; ok {
		delete(f.awaiting, p.ID)
		if p.Author.ID == "" {
			p = own
		}
	}
	if p.Author.ID == "" {
		f.posts.Update(p.ID, func(existing *model.Post) { existing.IsApproved = true })
		return
	}
	p.IsApproved = true
	if !f.posts.ReplaceByID(p.ID, p) && f.showsLocked(&p) {
		f.posts.InsertIfAbsent(p, Front)
	}
}

func (f *Feed) onPostRemoved(ev realtime.Event) {
	id, err := realtime.DecodeID(ev.Payload())
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts.RemoveByID(id)
	delete(f.awaiting, id)
}

func (f *Feed) onReaction(liked bool) realtime.Handler {
	return func(ev realtime.Event) {
		var r realtime.PostReaction
		if err := ev.Decode(&r); err != nil {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Post != nil && r.Post.Validate() == nil {
			// Reaction payloads may omit isApproved; the feed only holds shown posts.
			f.posts.Update(r.Post.ID, func(p *model.Post) {
				approved := p.IsApproved
				*p = *r.Post
				p.IsApproved = approved
			})
			return
		}
		if r.User.ID == "" {
			return
		}
		f.posts.Update(r.PostID, func(p *model.Post) { setLike(p, r.User, liked) })
	}
}

func (f *Feed) onComment(ev realtime.Event) {
	var c realtime.CommentAdded
	if err := ev.Decode(&c); err != nil || c.Comment.Validate() != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts.Update(c.PostID, func(p *model.Post) { addComment(p, c.Comment) })
}

func (f *Feed) onBlock(blocked bool) realtime.Handler {
	return func(ev realtime.Event) {
		var b realtime.BlockChanged
		if err := ev.Decode(&b); err != nil {
			return
		}
		other := b.Other(f.env.selfID())
		if other == "" {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if blocked {
			f.hideLocked(other)
		} else {
			delete(f.hidden, other)
		}
	}
}

func (f *Feed) hideLocked(userID string) []model.Post {
	f.hidden[userID] = true
	return f.posts.RemoveWhere(func(p model.Post) bool { return p.Author.ID == userID })
}

// CreatePost publishes a post. Text-only posts show at once; posts with an
// image show once moderation approves them.
func (f *Feed) CreatePost(ctx context.Context, req model.CreatePostRequest) (*model.Post, error) {
	self, token, err := f.env.credentials()
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePost(req); err != nil {
		return nil, err
	}

	clientID, localID := newMarker()
	req.ClientID = clientID
	immediate := model.CreatePostApproval(req)
	if immediate {
		f.mu.Lock()
		f.posts.InsertIfAbsent(model.Post{
			ID:         localID,
			ClientID:   clientID,
			Author:     self.Ref(),
			Content:    req.Content,
			IsApproved: true,
			CreatedAt:  time.Now(),
		}, Front)
		f.mu.Unlock()
		f.pending.beginWith(clientID, func() {
			f.mu.Lock()
			f.posts.RemoveByID(localID)
			f.mu.Unlock()
		})
	}

	created, err := f.api.CreatePost(ctx, token, req)
	if err != nil {
		f.pending.revert(clientID)
		f.log.Warn("create post failed", zap.Error(err))
		return nil, err
	}
	f.pending.commit(clientID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !created.IsApproved {
		f.posts.RemoveByID(localID)
		f.awaiting[created.ID] = *created
		return created, nil
	}
	if f.posts.IndexOf(created.ID) >= 0 {
		f.posts.RemoveByID(localID)
	} else if !f.posts.ReplaceByID(localID, *created) {
		f.posts.InsertIfAbsent(*created, Front)
	}
	return created, nil
}

// Like adds the viewer's like now and reconciles with the server's copy.
func (f *Feed) Like(ctx context.Context, postID string) error {
	return f.react(ctx, postID, true)
}

func (f *Feed) Unlike(ctx context.Context, postID string) error {
	return f.react(ctx, postID, false)
}

func (f *Feed) react(ctx context.Context, postID string, like bool) error {
	self, token, err := f.env.credentials()
	if err != nil {
		return err
	}

	f.mu.Lock()
	var had bool
	found := f.posts.Update(postID, func(p *model.Post) {
		had = p.LikedBy(self.ID)
		setLike(p, self.Ref(), like)
	})
	f.mu.Unlock()
	if !found {
		return model.ErrNotFound
	}
	marker := f.pending.begin(func() {
		f.mu.Lock()
		f.posts.Update(postID, func(p *model.Post) { setLike(p, self.Ref(), had) })
		f.mu.Unlock()
	})

	var updated *model.Post
	if like {
		updated, err = f.api.LikePost(ctx, token, postID)
	} else {
		updated, err = f.api.UnlikePost(ctx, token, postID)
	}
	if err != nil {
		f.pending.revert(marker)
		f.log.Warn("react failed", zap.String("post_id", postID), zap.Bool("like", like), zap.Error(err))
		return err
	}
	f.pending.commit(marker)

	if updated != nil {
		f.mu.Lock()
		f.posts.ReplaceByID(postID, *updated)
		f.mu.Unlock()
	}
	return nil
}

// Comment appends a comment now and swaps in the server's copy when it answers.
func (f *Feed) Comment(ctx context.Context, postID, text string) (*model.Comment, error) {
	self, token, err := f.env.credentials()
	if err != nil {
		return nil, err
	}
	req := model.CreateCommentRequest{Text: text}
	if err := model.ValidateComment(req); err != nil {
		return nil, err
	}

	_, localID := newMarker()
	f.mu.Lock()
	found := f.posts.Update(postID, func(p *model.Post) {
		addComment(p, model.Comment{ID: localID, Author: self.Ref(), Text: text, CreatedAt: time.Now()})
	})
	f.mu.Unlock()
	if !found {
		return nil, model.ErrNotFound
	}
	marker := f.pending.begin(func() {
		f.mu.Lock()
		f.posts.Update(postID, func(p *model.Post) { removeComment(p, localID) })
		f.mu.Unlock()
	})

	created, err := f.api.AddComment(ctx, token, postID, req)
	if err != nil {
		f.pending.revert(marker)
		f.log.Warn("comment failed", zap.String("post_id", postID), zap.Error(err))
		return nil, err
	}
	f.pending.commit(marker)

	f.mu.Lock()
	f.posts.Update(postID, func(p *model.Post) {
		removeComment(p, localID)
		addComment(p, *created)
	})
	f.mu.Unlock()
	return created, nil
}

// EditComment changes the text of one of the viewer's comments. The new text
// shows at once; a failure puts back only this edit's previous text.
func (f *Feed) EditComment(ctx context.Context, postID, commentID, text string) (*model.Comment, error) {
	self, token, err := f.env.credentials()
	if err != nil {
		return nil, err
	}
	req := model.CreateCommentRequest{Text: text}
	if err := model.ValidateComment(req); err != nil {
		return nil, err
	}

	var (
		prev  string
		found bool
		owned bool
	)
	f.mu.Lock()
	f.posts.Update(postID, func(p *model.Post) {
		for i := range p.Comments {
			if p.Comments[i].ID != commentID {
				continue
			}
			found = true
			if owned = p.Comments[i].Author.ID == self.ID; owned {
				prev = p.Comments[i].Text
				p.Comments[i].Text = text
			}
			return
		}
	})
	f.mu.Unlock()
	if !found {
		return nil, model.ErrNotFound
	}
	if !owned {
		return nil, &model.ValidationError{Field: "commentId", Reason: "not your comment"}
	}
	marker := f.pending.begin(func() {
		f.mu.Lock()
		f.posts.Update(postID, func(p *model.Post) { setCommentText(p, commentID, text, prev) })
		f.mu.Unlock()
	})

	updated, err := f.api.UpdateComment(ctx, token, postID, commentID, req)
	if err != nil {
		f.pending.revert(marker)
		f.log.Warn("edit comment failed", zap.String("post_id", postID), zap.String("comment_id", commentID), zap.Error(err))
		return nil, err
	}
	f.pending.commit(marker)

	f.mu.Lock()
	f.posts.Update(postID, func(p *model.Post) {
		for i := range p.Comments {
			if p.Comments[i].ID == commentID {
				p.Comments[i] = *updated
				return
			}
		}
	})
	f.mu.Unlock()
	return updated, nil
}

// setCommentText swaps the text back only if nothing replaced it meanwhile.
func setCommentText(p *model.Post, commentID, current, prev string) {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID && p.Comments[i].Text == current {
			p.Comments[i].Text = prev
			return
		}
	}
}

// DeleteComment removes one of the viewer's comments.
func (f *Feed) DeleteComment(ctx context.Context, postID, commentID string) error {
	_, token, err := f.env.credentials()
	if err != nil {
		return err
	}

	var removed model.Comment
	var idx = -1
	f.mu.Lock()
	f.posts.Update(postID, func(p *model.Post) {
		for i, c := range p.Comments {
			if c.ID == commentID {
				removed, idx = c, i
				break
			}
		}
		removeComment(p, commentID)
	})
	f.mu.Unlock()
	if idx < 0 {
		return model.ErrNotFound
	}
	marker := f.pending.begin(func() {
		f.mu.Lock()
		f.posts.Update(postID, func(p *model.Post) { insertComment(p, idx, removed) })
		f.mu.Unlock()
	})

	if err := f.api.DeleteComment(ctx, token, postID, commentID); err != nil {
		f.pending.revert(marker)
		return err
	}
	f.pending.commit(marker)
	return nil
}

// DeletePost removes one of the viewer's posts. On failure it goes back in place.
func (f *Feed) DeletePost(ctx context.Context, postID string) error {
	_, token, err := f.env.credentials()
	if err != nil {
		return err
	}

	f.mu.Lock()
	removed, idx, ok := f.posts.RemoveByID(postID)
	f.mu.Unlock()
	if !ok {
		return model.ErrNotFound
	}
	marker := f.pending.begin(func() {
		f.mu.Lock()
		if f.posts.IndexOf(postID) < 0 && !f.hidden[removed.Author.ID] {
			f.posts.InsertAt(idx, removed)
		}
		f.mu.Unlock()
	})

	if err := f.api.DeletePost(ctx, token, postID); err != nil {
		f.pending.revert(marker)
		f.log.Warn("delete post failed", zap.String("post_id", postID), zap.Error(err))
		return err
	}
	f.pending.commit(marker)
	return nil
}

// BlockAuthor hides every post by userID at once and blocks them on the server.
func (f *Feed) BlockAuthor(ctx context.Context, userID string) error {
	self, token, err := f.env.credentials()
	if err != nil {
		return err
	}
	if userID == self.ID {
		return &model.ValidationError{Field: "userId", Reason: "cannot block yourself"}
	}

	f.mu.Lock()
	wasHidden := f.hidden[userID]
	removed := f.hideLocked(userID)
	f.mu.Unlock()
	marker := f.pending.begin(func() {
		f.mu.Lock()
		if !wasHidden {
			delete(f.hidden, userID)
		}
		for _, p := range removed {
			f.posts.InsertIfAbsent(p, Back)
		}
		f.mu.Unlock()
	})

	if err := f.api.Block(ctx, token, userID); err != nil {
		f.pending.revert(marker)
		f.log.Warn("block failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	f.pending.commit(marker)

	blocked := *self
	if !blocked.HasBlocked(userID) {
		blocked.BlockedUsers = append(append([]string(nil), self.BlockedUsers...), userID)
		if err := f.env.Session.UpdateUser(ctx, &blocked); err != nil {
			f.log.Warn("update session user failed", zap.Error(err))
		}
	}
	return nil
}

// Report files a report against a post.
func (f *Feed) Report(ctx context.Context, postID, reason, detail string) error {
	_, token, err := f.env.credentials()
	if err != nil {
		return err
	}
	r := model.Report{TargetID: postID, TargetType: model.ReportTargetPost, Reason: reason, Detail: detail}
	if err := model.ValidateReport(r); err != nil {
		return err
	}
	return f.api.CreateReport(ctx, token, r)
}

func (f *Feed) Posts() []model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts.Items()
}

func (f *Feed) Post(postID string) (model.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts.Get(postID)
}

func (f *Feed) Close() {
	f.subs.close()
}

// =============================================================================
// Post helpers
// =============================================================================

func setLike(p *model.Post, u model.UserRef, liked bool) {
	has := p.LikedBy(u.ID)
	switch {
	case liked && !has:
		p.Likes = append(append([]model.UserRef(nil), p.Likes...), u)
	case !liked && has:
		kept := make([]model.UserRef, 0, len(p.Likes))
		for _, l := range p.Likes {
			if l.ID != u.ID {
				kept = append(kept, l)
			}
		}
		p.Likes = kept
	}
}

func addComment(p *model.Post, c model.Comment) {
	for _, existing := range p.Comments {
		if existing.ID == c.ID {
			return
		}
	}
	p.Comments = append(append([]model.Comment(nil), p.Comments...), c)
}

func insertComment(p *model.Post, i int, c model.Comment) {
	for _, existing := range p.Comments {
		if existing.ID == c.ID {
			return
		}
	}
	if i < 0 || i > len(p.Comments) {
		i = len(p.Comments)
	}
	out := make([]model.Comment, 0, len(p.Comments)+1)
	out = append(out, p.Comments[:i]...)
	out = append(out, c)
	out = append(out, p.Comments[i:]...)
	p.Comments = out
}

func removeComment(p *model.Post, id string) {
	kept := make([]model.Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	p.Comments = kept
}
