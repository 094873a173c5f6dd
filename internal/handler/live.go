package handler

import (
	"context"
	"sync"

	"socialsync/internal/app"
	"socialsync/internal/model"
	"socialsync/internal/session"
	"socialsync/internal/viewmodel"
)

// Caps on cached per-key screens. The least recently used is closed first.
const (
	maxLiveThreads  = 16
	maxLiveProfiles = 32
)

type closer interface{ Close() }

// keyed is an LRU of screens keyed by user id. order runs from least to most
// recently used.
type keyed[T closer] struct {
	max   int
	order []string
	items map[string]T
}

func newKeyed[T closer](max int) *keyed[T] {
	return &keyed[T]{max: max, items: make(map[string]T)}
}

func (k *keyed[T]) get(id string) (T, bool) {
	v, ok := k.items[id]
	if ok {
		k.touch(id)
	}
	return v, ok
}

func (k *keyed[T]) put(id string, v T) {
	if _, ok := k.items[id]; ok {
		k.touch(id)
	} else {
		k.order = append(k.order, id)
	}
	k.items[id] = v
	for len(k.order) > k.max {
		oldest := k.order[0]
		k.order = k.order[1:]
		k.items[oldest].Close()
		delete(k.items, oldest)
	}
}

// touch moves id to the most recently used end.
func (k *keyed[T]) touch(id string) {
	for i, o := range k.order {
		if o == id {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	k.order = append(k.order, id)
}

func (k *keyed[T]) closeAll() {
	for _, v := range k.items {
		v.Close()
	}
	k.order = nil
	k.items = make(map[string]T)
}

// Live keeps screens open between requests so realtime events keep them
// current. Everything is dropped when the session changes.
type Live struct {
	app *app.App

	mu       sync.Mutex
	feed     *viewmodel.Feed
	convs    *viewmodel.Conversations
	notifs   *viewmodel.NotificationCenter
	threads  *keyed[*viewmodel.ChatThread]
	profiles *keyed[*viewmodel.Profile]

	unsub func()
}

func NewLive(a *app.App) *Live {
	l := &Live{
		app:      a,
		threads:  newKeyed[*viewmodel.ChatThread](maxLiveThreads),
		profiles: newKeyed[*viewmodel.Profile](maxLiveProfiles),
	}
	l.unsub = a.Session().OnChange(func(*session.Session) { l.Reset() })
	return l
}

func (l *Live) Feed(ctx context.Context) (*viewmodel.Feed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.feed == nil {
		f, err := l.app.Feed(ctx)
		if err != nil {
			return nil, err
		}
		l.feed = f
	}
	return l.feed, nil
}

func (l *Live) Conversations(ctx context.Context) (*viewmodel.Conversations, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conversationsLocked(ctx)
}

func (l *Live) conversationsLocked(ctx context.Context) (*viewmodel.Conversations, error) {
	if l.convs == nil {
		c, err := l.app.Conversations(ctx)
		if err != nil {
			return nil, err
		}
		l.convs = c
	}
	return l.convs, nil
}

func (l *Live) Notifications(ctx context.Context) (*viewmodel.NotificationCenter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.notifs == nil {
		n, err := l.app.Notifications(ctx)
		if err != nil {
			return nil, err
		}
		l.notifs = n
	}
	return l.notifs, nil
}

// Thread returns the open chat with counterpartID and marks it active in
// the inbox when the inbox is loaded.
func (l *Live) Thread(ctx context.Context, counterpartID string) (*viewmodel.ChatThread, error) {
	if _, err := model.ParseID(counterpartID); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.convs != nil {
		l.convs.SetActive(counterpartID)
	}
	if c, ok := l.threads.get(counterpartID); ok {
		return c, nil
	}
	c, err := l.app.ChatThread(ctx, counterpartID)
	if err != nil {
		return nil, err
	}
	l.threads.put(counterpartID, c)
	return c, nil
}

// Inbox returns the inbox only if it is already loaded.
func (l *Live) Inbox() *viewmodel.Conversations {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.convs
}

func (l *Live) Profile(ctx context.Context, userID string) (*viewmodel.Profile, error) {
	if _, err := model.ParseID(userID); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.profiles.get(userID); ok {
		return p, nil
	}
	p, err := l.app.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.profiles.put(userID, p)
	return p, nil
}

// DropFeed closes the live feed. The next Feed call hydrates a fresh one.
func (l *Live) DropFeed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.feed != nil {
		l.feed.Close()
		l.feed = nil
	}
}

// Reset closes every open screen.
func (l *Live) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.feed != nil {
		l.feed.Close()
		l.feed = nil
	}
	if l.convs != nil {
		l.convs.Close()
		l.convs = nil
	}
	if l.notifs != nil {
		l.notifs.Close()
		l.notifs = nil
	}
	l.threads.closeAll()
	l.profiles.closeAll()
}

func (l *Live) Close() {
	l.unsub()
	l.Reset()
}
