package viewmodel

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// Conversations is the inbox: the latest message per counterpart and an
// unread counter that only counts messages from the counterpart.
type Conversations struct {
	api     ConversationAPI
	env     Env
	log     *zap.Logger
	subs    *subscriptions
	pending *pendingEdits

	mu     sync.Mutex
	items  *Collection[model.Conversation]
	seen   map[string]struct{}
	active string
}

func NewConversations(api ConversationAPI, env Env) *Conversations {
	c := &Conversations{
		api:     api,
		env:     env,
		log:     env.logger("conversations"),
		subs:    &subscriptions{bus: env.Bus},
		pending: newPendingEdits(),
		items:   NewCollection(func(c model.Conversation) string { return c.Counterpart.ID }, nil),
		seen:    make(map[string]struct{}),
	}
	c.subs.on(realtime.EventMessageReceived, c.onMessage)
	c.subs.on(realtime.EventBlocked, c.onBlocked)
	return c
}

func (c *Conversations) Hydrate(ctx context.Context) error {
	_, token, err := c.env.credentials()
	if err != nil {
		return err
	}
	convs, err := c.api.Conversations(ctx, token)
	if err != nil {
		c.log.Warn("load conversations failed", zap.Error(err))
		return err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessage.CreatedAt.After(convs[j].LastMessage.CreatedAt)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Replace(convs)
	c.seen = make(map[string]struct{}, len(convs))
	for _, conv := range convs {
		c.seen[conv.LastMessage.ID] = struct{}{}
	}
	return nil
}

func (c *Conversations) onMessage(ev realtime.Event) {
	var m model.Message
	if err := ev.Decode(&m); err != nil {
		return
	}
	if err := m.Validate(); err != nil {
		return
	}
	c.Receive(m)
}

// Receive merges one message. Delivering the same message twice has no further effect.
func (c *Conversations) Receive(m model.Message) {
	self := c.env.selfID()
	if self == "" || (m.Sender.ID != self && m.Receiver.ID != self) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[m.ID]; dup {
		return
	}
	c.seen[m.ID] = struct{}{}

	counterpart := m.Counterpart(self)
	fromPeer := m.Sender.ID != self
	countIt := fromPeer && !m.Read && counterpart.ID != c.active

	if !c.items.Update(counterpart.ID, func(conv *model.Conversation) {
		if !m.CreatedAt.Before(conv.LastMessage.CreatedAt) {
			conv.LastMessage = m
		}
		if countIt {
			conv.UnreadCount++
		}
		if fromPeer && counterpart.Name != "" {
			conv.Counterpart = counterpart
		}
	}) {
		conv := model.Conversation{Counterpart: counterpart, LastMessage: m}
		if countIt {
			conv.UnreadCount = 1
		}
		c.items.InsertIfAbsent(conv, Front)
		return
	}
	c.items.MoveToFront(counterpart.ID)
}

func (c *Conversations) onBlocked(ev realtime.Event) {
	var b realtime.BlockChanged
	if err := ev.Decode(&b); err != nil {
		return
	}
	other := b.Other(c.env.selfID())
	c.mu.Lock()
	c.items.RemoveByID(other)
	c.mu.Unlock()
}

// SetActive tells the inbox which thread is on screen. Its messages do not
// count as unread, and its counter is cleared.
func (c *Conversations) SetActive(counterpartID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = counterpartID
	if counterpartID != "" {
		c.items.Update(counterpartID, func(conv *model.Conversation) { conv.UnreadCount = 0 })
	}
}

// MarkRead clears a counter now and tells the server. A failure restores
// only what this call cleared.
func (c *Conversations) MarkRead(ctx context.Context, counterpartID string) error {
	_, token, err := c.env.credentials()
	if err != nil {
		return err
	}

	c.mu.Lock()
	var cleared int
	c.items.Update(counterpartID, func(conv *model.Conversation) {
		cleared = conv.UnreadCount
		conv.UnreadCount = 0
	})
	c.mu.Unlock()

	marker := c.pending.begin(func() {
		c.mu.Lock()
		c.items.Update(counterpartID, func(conv *model.Conversation) { conv.UnreadCount += cleared })
		c.mu.Unlock()
	})
	if err := c.api.MarkConversationRead(ctx, token, counterpartID); err != nil {
		c.pending.revert(marker)
		c.log.Warn("mark read failed", zap.String("with", counterpartID), zap.Error(err))
		return err
	}
	c.pending.commit(marker)
	return nil
}

func (c *Conversations) Items() []model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Items()
}

func (c *Conversations) Unread(counterpartID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, _ := c.items.Get(counterpartID)
	return conv.UnreadCount
}

// TotalUnread sums every counter.
func (c *Conversations) TotalUnread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, conv := range c.items.Items() {
		total += conv.UnreadCount
	}
	return total
}

func (c *Conversations) Close() {
	c.subs.close()
}
