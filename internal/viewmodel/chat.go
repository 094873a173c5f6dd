package viewmodel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// TypingInterval is the minimum gap between two typing emissions.
const TypingInterval = 3 * time.Second

// ChatThread is the open conversation with one counterpart.
type ChatThread struct {
	api     ChatAPI
	env     Env
	log     *zap.Logger
	subs    *subscriptions
	pending *pendingEdits
	typing  *rate.Limiter

	mu            sync.Mutex
	counterpartID string
	room          string
	messages      *Collection[model.Message]
	requests      map[string]*AlbumRequest
	peerTyping    bool
	selfTyping    bool
	joined        bool
}

func NewChatThread(api ChatAPI, env Env) *ChatThread {
	c := &ChatThread{
		api:     api,
		env:     env,
		log:     env.logger("chat"),
		subs:    &subscriptions{bus: env.Bus},
		pending: newPendingEdits(),
		typing:  rate.NewLimiter(rate.Every(TypingInterval), 1),
		messages: NewCollection(
			func(m model.Message) string { return m.ID },
			func(m model.Message) string { return m.ClientID },
		),
		requests: make(map[string]*AlbumRequest),
	}
	c.subs.on(realtime.EventMessageReceived, c.onMessage)
	c.subs.on(realtime.EventTyping, c.onTyping(true))
	c.subs.on(realtime.EventStopTyping, c.onTyping(false))
	c.subs.on(realtime.EventAlbumAccessResponse, c.onAlbumDecision)
	return c
}

// Open switches the thread to counterpartID and hydrates it. Switching leaves
// the previous room first.
func (c *ChatThread) Open(ctx context.Context, counterpartID string) error {
	self := c.env.selfID()
	if self == "" {
		return model.ErrNoSession
	}
	if counterpartID == "" || counterpartID == self {
		return &model.ValidationError{Field: "userId", Reason: "invalid counterpart"}
	}

	c.mu.Lock()
	prevRoom, wasJoined := c.room, c.joined
	changed := c.counterpartID != counterpartID
	c.counterpartID = counterpartID
	c.room = model.ConversationKey(self, counterpartID)
	room := c.room
	if changed {
		c.messages.Replace(nil)
		c.requests = make(map[string]*AlbumRequest)
		c.peerTyping = false
		c.selfTyping = false
	}
	c.joined = true
	c.mu.Unlock()

	if wasJoined && changed {
		c.env.emit(c.log, realtime.EventLeaveChat, prevRoom)
	}
	if changed || !wasJoined {
		c.env.emit(c.log, realtime.EventJoinChat, room)
	}
	return c.Hydrate(ctx)
}

// Hydrate replaces the thread with the server copy.
func (c *ChatThread) Hydrate(ctx context.Context) error {
	_, token, err := c.env.credentials()
	if err != nil {
		return err
	}
	c.mu.Lock()
	counterpartID := c.counterpartID
	c.mu.Unlock()
	if counterpartID == "" {
		return fmt.Errorf("chat thread has no conversation open")
	}

	msgs, err := c.api.Messages(ctx, token, counterpartID)
	if err != nil {
		c.log.Warn("load messages failed", zap.String("with", counterpartID), zap.Error(err))
		return err
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counterpartID != counterpartID {
		// Navigated elsewhere while loading.
		return nil
	}
	c.messages.Replace(msgs)
	c.requests = make(map[string]*AlbumRequest)
	for i := range msgs {
		c.trackRequestLocked(&msgs[i])
	}
	return nil
}

// trackRequestLocked keeps album-request state in step with the messages that carry it.
func (c *ChatThread) trackRequestLocked(m *model.Message) {
	switch m.Type {
	case model.MessageTypeAlbumAccessRequest:
		id := m.RelatedID
		if id == "" {
			return
		}
		if _, ok := c.requests[id]; !ok {
			// The requester writes the request message to the album owner.
			c.requests[id] = NewAlbumRequest(id, m.Receiver.ID, m.Sender.ID)
		}
	case model.MessageTypeAlbumAccessResponse:
		if r, ok := c.requests[m.RelatedID]; ok {
			r.Apply(model.AlbumAccessStatus(m.Content))
		}
	}
}

func (c *ChatThread) onMessage(ev realtime.Event) {
	var m model.Message
	if err := ev.Decode(&m); err != nil {
		c.log.Debug("bad message payload", zap.Error(err))
		return
	}
	if err := m.Validate(); err != nil {
		c.log.Debug("invalid message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == "" || m.ConversationKey() != c.room {
		return
	}
	c.messages.InsertIfAbsent(m, Back)
	c.trackRequestLocked(&m)
	if m.Sender.ID == c.counterpartID {
		c.peerTyping = false
	}
}

func (c *ChatThread) onTyping(on bool) realtime.Handler {
	return func(ev realtime.Event) {
		room, err := realtime.DecodeID(ev.Payload())
		if err != nil {
			return
		}
		c.mu.Lock()
		if room == c.room {
			c.peerTyping = on
		}
		c.mu.Unlock()
	}
}

func (c *ChatThread) onAlbumDecision(ev realtime.Event) {
	var d realtime.AlbumAccessDecided
	if err := ev.Decode(&d); err != nil {
		c.log.Debug("bad album decision payload", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.requests[d.RequestID]; ok {
		r.Apply(d.Status)
	}
	if d.Message != nil && d.Message.Validate() == nil && d.Message.ConversationKey() == c.room {
		c.messages.InsertIfAbsent(*d.Message, Back)
	}
}

// Send posts a text message. The bubble shows at once and is dropped again
// if the server refuses it.
func (c *ChatThread) Send(ctx context.Context, text string) (*model.Message, error) {
	return c.send(ctx, model.SendMessageRequest{Content: text, Type: model.MessageTypePlain})
}

// SendImage posts a message whose image is already hosted at imageURL.
func (c *ChatThread) SendImage(ctx context.Context, imageURL, caption string) (*model.Message, error) {
	return c.send(ctx, model.SendMessageRequest{Content: caption, Image: imageURL, Type: model.MessageTypePlain})
}

func (c *ChatThread) send(ctx context.Context, req model.SendMessageRequest) (*model.Message, error) {
	self, token, err := c.env.credentials()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	req.ReceiverID = c.counterpartID
	c.mu.Unlock()
	if err := model.ValidateMessage(req); err != nil {
		return nil, err
	}

	clientID, localID := newMarker()
	req.ClientID = clientID
	optimistic := model.Message{
		ID:        localID,
		ClientID:  clientID,
		Sender:    self.Ref(),
		Receiver:  model.UserRef{ID: req.ReceiverID},
		Content:   req.Content,
		Image:     req.Image,
		Type:      req.Type,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.messages.InsertIfAbsent(optimistic, Back)
	c.mu.Unlock()
	c.pending.beginWith(clientID, func() {
		c.mu.Lock()
		c.messages.RemoveByID(localID)
		c.mu.Unlock()
	})
	c.StopTyping()

	sent, err := c.api.SendMessage(ctx, token, req)
	if err != nil {
		c.pending.revert(clientID)
		c.log.Warn("send message failed", zap.String("to", req.ReceiverID), zap.Error(err))
		return nil, err
	}
	c.pending.commit(clientID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if sent.ClientID == "" {
		sent.ClientID = clientID
	}
	if c.messages.IndexOf(sent.ID) >= 0 {
		// The realtime echo won the race.
		c.messages.RemoveByID(localID)
	} else if !c.messages.ReplaceByID(localID, *sent) {
		c.messages.InsertIfAbsent(*sent, Back)
	}
	return sent, nil
}

// Delete removes a message. On failure it goes back where it was.
func (c *ChatThread) Delete(ctx context.Context, messageID string) error {
	_, token, err := c.env.credentials()
	if err != nil {
		return err
	}
	if IsLocalID(messageID) {
		return &model.ValidationError{Field: "messageId", Reason: "message not sent yet"}
	}

	c.mu.Lock()
	removed, idx, ok := c.messages.RemoveByID(messageID)
	c.mu.Unlock()
	if !ok {
		return model.ErrNotFound
	}
	marker := c.pending.begin(func() {
		c.mu.Lock()
		if c.messages.IndexOf(removed.ID) < 0 {
			c.messages.InsertAt(idx, removed)
		}
		c.mu.Unlock()
	})

	if err := c.api.DeleteMessage(ctx, token, messageID); err != nil {
		c.pending.revert(marker)
		c.log.Warn("delete message failed", zap.String("message_id", messageID), zap.Error(err))
		return err
	}
	c.pending.commit(marker)
	return nil
}

// MarkRead marks the counterpart's messages read.
func (c *ChatThread) MarkRead(ctx context.Context) error {
	_, token, err := c.env.credentials()
	if err != nil {
		return err
	}
	c.mu.Lock()
	counterpartID := c.counterpartID
	var flipped []string
	for _, m := range c.messages.Items() {
		if m.Sender.ID == counterpartID && !m.Read {
			flipped = append(flipped, m.ID)
			c.messages.Update(m.ID, func(m *model.Message) { m.Read = true })
		}
	}
	c.mu.Unlock()

	marker := c.pending.begin(func() {
		c.mu.Lock()
		for _, id := range flipped {
			c.messages.Update(id, func(m *model.Message) { m.Read = false })
		}
		c.mu.Unlock()
	})
	if err := c.api.MarkConversationRead(ctx, token, counterpartID); err != nil {
		c.pending.revert(marker)
		return err
	}
	c.pending.commit(marker)
	return nil
}

// RequestAlbumAccess asks the counterpart to open their private album.
func (c *ChatThread) RequestAlbumAccess(ctx context.Context) (*model.AlbumAccessRequest, error) {
	self, token, err := c.env.credentials()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	ownerID := c.counterpartID
	c.mu.Unlock()

	req, err := c.api.RequestAlbumAccess(ctx, token, ownerID)
	if err != nil {
		c.log.Warn("album access request failed", zap.String("owner", ownerID), zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.requests[req.ID]; !ok {
		r := NewAlbumRequest(req.ID, ownerID, self.ID)
		r.Apply(req.Status)
		c.requests[req.ID] = r
	}
	c.mu.Unlock()
	return req, nil
}

// RespondAlbumAccess is the owner's approve or reject.
func (c *ChatThread) RespondAlbumAccess(ctx context.Context, requestID string, status model.AlbumAccessStatus) error {
	self, token, err := c.env.credentials()
	if err != nil {
		return err
	}
	c.mu.Lock()
	r, ok := c.requests[requestID]
	c.mu.Unlock()
	if !ok {
		return model.ErrNotFound
	}
	if err := r.Decide(self.ID, status); err != nil {
		return err
	}

	updated, err := c.api.RespondAlbumAccess(ctx, token, requestID, status)
	if err != nil {
		r.revert()
		c.log.Warn("album access response failed", zap.String("request_id", requestID), zap.Error(err))
		return err
	}
	r.confirm(updated.Status)
	return nil
}

// AlbumRequest returns the state of one request seen in this thread.
func (c *ChatThread) AlbumRequest(requestID string) (*AlbumRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.requests[requestID]
	return r, ok
}

// Typing is called on each keystroke. Emissions are throttled.
func (c *ChatThread) Typing() {
	c.mu.Lock()
	room := c.room
	if room == "" || !c.typing.Allow() {
		c.mu.Unlock()
		return
	}
	c.selfTyping = true
	c.mu.Unlock()
	c.env.emit(c.log, realtime.EventTyping, room)
}

// StopTyping is called when the composer is cleared or a message is sent.
func (c *ChatThread) StopTyping() {
	c.mu.Lock()
	room, was := c.room, c.selfTyping
	c.selfTyping = false
	c.mu.Unlock()
	if was {
		c.env.emit(c.log, realtime.EventStopTyping, room)
	}
}

func (c *ChatThread) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.Items()
}

func (c *ChatThread) PeerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerTyping
}

func (c *ChatThread) CounterpartID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counterpartID
}

// Close leaves the room and drops every subscription.
func (c *ChatThread) Close() {
	c.StopTyping()
	c.mu.Lock()
	room, joined := c.room, c.joined
	c.joined = false
	c.mu.Unlock()
	if joined {
		c.env.emit(c.log, realtime.EventLeaveChat, room)
	}
	c.subs.close()
}
