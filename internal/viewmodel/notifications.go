package viewmodel

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// NotificationCenter lists the viewer's notifications, newest first.
type NotificationCenter struct {
	api     NotificationAPI
	env     Env
	log     *zap.Logger
	subs    *subscriptions
	pending *pendingEdits

	mu    sync.Mutex
	items *Collection[model.Notification]
}

func NewNotificationCenter(api NotificationAPI, env Env) *NotificationCenter {
	n := &NotificationCenter{
		api:     api,
		env:     env,
		log:     env.logger("notifications"),
		subs:    &subscriptions{bus: env.Bus},
		pending: newPendingEdits(),
		items:   NewCollection(func(n model.Notification) string { return n.ID }, nil),
	}
	n.subs.on(realtime.EventNewNotification, n.onNotification)
	return n
}

func (n *NotificationCenter) Hydrate(ctx context.Context) error {
	_, token, err := n.env.credentials()
	if err != nil {
		return err
	}
	items, err := n.api.Notifications(ctx, token)
	if err != nil {
		n.log.Warn("load notifications failed", zap.Error(err))
		return err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	n.mu.Lock()
	n.items.Replace(items)
	n.mu.Unlock()
	return nil
}

func (n *NotificationCenter) onNotification(ev realtime.Event) {
	var item model.Notification
	if err := ev.Decode(&item); err != nil {
		return
	}
	if err := item.Validate(); err != nil {
		n.log.Debug("invalid notification", zap.Error(err))
		return
	}
	n.mu.Lock()
	n.items.InsertIfAbsent(item, Front)
	n.mu.Unlock()
}

// MarkRead flags one notification read now and on the server.
func (n *NotificationCenter) MarkRead(ctx context.Context, id string) error {
	_, token, err := n.env.credentials()
	if err != nil {
		return err
	}

	n.mu.Lock()
	var was bool
	found := n.items.Update(id, func(item *model.Notification) {
		was = item.Read
		item.Read = true
	})
	n.mu.Unlock()
	if !found {
		return model.ErrNotFound
	}
	if was {
		return nil
	}
	marker := n.pending.begin(func() { n.setRead([]string{id}, false) })

	if err := n.api.MarkNotificationRead(ctx, token, id); err != nil {
		n.pending.revert(marker)
		n.log.Warn("mark notification read failed", zap.String("id", id), zap.Error(err))
		return err
	}
	n.pending.commit(marker)
	return nil
}

// MarkAllRead flags everything read. A failure restores exactly the items it flipped.
func (n *NotificationCenter) MarkAllRead(ctx context.Context) error {
	_, token, err := n.env.credentials()
	if err != nil {
		return err
	}

	n.mu.Lock()
	var flipped []string
	for _, item := range n.items.Items() {
		if !item.Read {
			flipped = append(flipped, item.ID)
		}
	}
	n.mu.Unlock()
	n.setRead(flipped, true)
	marker := n.pending.begin(func() { n.setRead(flipped, false) })

	if err := n.api.MarkAllNotificationsRead(ctx, token); err != nil {
		n.pending.revert(marker)
		n.log.Warn("mark all notifications read failed", zap.Error(err))
		return err
	}
	n.pending.commit(marker)
	return nil
}

func (n *NotificationCenter) setRead(ids []string, read bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range ids {
		n.items.Update(id, func(item *model.Notification) { item.Read = read })
	}
}

func (n *NotificationCenter) Items() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.items.Items()
}

// Unread counts unread notifications.
func (n *NotificationCenter) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, item := range n.items.Items() {
		if !item.Read {
			count++
		}
	}
	return count
}

func (n *NotificationCenter) Close() {
	n.subs.close()
}
