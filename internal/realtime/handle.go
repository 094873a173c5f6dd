package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"socialsync/internal/model"
)

// Toast is a transient notice raised by the connection itself.
type Toast struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// Toaster shows a toast. It runs on the dispatcher goroutine and must not block.
type Toaster func(t Toast)

// Handle is the live event channel of one logged-in user. Screens subscribe
// on it and emit through it.
type Handle struct {
	userID     string
	isFavorite func(userID string) bool
	toaster    Toaster
	onBan      func(AccountBanned)
	emitter    *Emitter
	disp       *dispatcher
	log        *zap.Logger

	mu     sync.Mutex
	conn   *Conn
	closed bool
	done   chan struct{}

	unread atomic.Int64

	// Touched only on the dispatcher goroutine.
	lastOnline map[string]bool
}

func newHandle(user *model.User, opts Options, log *zap.Logger) *Handle {
	isFavorite := opts.IsFavorite
	if isFavorite == nil {
		favorites := append([]string(nil), user.Favorites...)
		snapshot := &model.User{Favorites: favorites}
		isFavorite = snapshot.HasFavorite
	}

	h := &Handle{
		userID:     user.ID,
		isFavorite: isFavorite,
		toaster:    opts.Toaster,
		onBan:      opts.OnBan,
		emitter:    NewEmitter(),
		log:        log.With(zap.String("user_id", user.ID)),
		done:       make(chan struct{}),
		lastOnline: make(map[string]bool),
	}
	h.disp = newDispatcher(h.process, h.log)
	h.disp.Start(context.Background())
	return h
}

// attach makes conn the live connection, announces the user and starts reading.
func (h *Handle) attach(conn *Conn, setup model.UserRef) error {
	if err := conn.Emit(EventSetup, setup); err != nil {
		conn.Close()
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return model.ErrNotConnected
	}
	old := h.conn
	h.conn = conn
	h.mu.Unlock()
	if old != nil {
		old.Close()
	}

	go h.readLoop(conn)
	h.disp.Enqueue(Event{Name: EventConnect})
	h.log.Info("socket connected", zap.String("sid", conn.SID()))
	return nil
}

func (h *Handle) readLoop(conn *Conn) {
	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			h.detach(conn, err)
			return
		}
		h.disp.Enqueue(ev)
	}
}

func (h *Handle) detach(conn *Conn, cause error) {
	h.mu.Lock()
	current := h.conn == conn
	if current {
		h.conn = nil
	}
	closed := h.closed
	h.mu.Unlock()

	conn.Close()
	if closed || !current {
		return
	}

	h.log.Warn("socket dropped", zap.Error(cause))
	reason, _ := json.Marshal(cause.Error())
	h.disp.Enqueue(Event{Name: EventDisconnect, Args: []json.RawMessage{reason}})
}

// process applies connection-level side effects, then fans the event out.
func (h *Handle) process(ev Event) {
	switch ev.Name {
	case EventMessageReceived:
		var m struct {
			Sender model.UserRef `json:"sender"`
		}
		if err := ev.Decode(&m); err == nil && m.Sender.ID != "" && m.Sender.ID != h.userID {
			h.unread.Add(1)
		}
	case EventPresence:
		var p PresenceChanged
		if err := ev.Decode(&p); err != nil {
			h.log.Debug("bad presence payload", zap.Error(err))
			break
		}
		was := h.lastOnline[p.UserID]
		h.lastOnline[p.UserID] = p.IsOnline
		if p.IsOnline && !was && h.toaster != nil && h.isFavorite(p.UserID) {
			text := "Someone you like is online"
			if p.Name != "" {
				text = p.Name + " is online"
			}
			h.toaster(Toast{UserID: p.UserID, Text: text})
		}
	case EventAccountBanned:
		var b AccountBanned
		_ = ev.Decode(&b)
		h.log.Warn("account banned", zap.String("reason", b.Reason))
		if h.onBan != nil {
			// The ban handler disconnects this handle, which waits for this goroutine.
			go h.onBan(b)
		}
	}
	h.emitter.Publish(ev)
}

// On subscribes fn to an event. Wire aliases resolve to their canonical name.
func (h *Handle) On(name string, fn Handler) Subscription {
	return h.emitter.On(name, fn)
}

func (h *Handle) Off(sub Subscription) {
	h.emitter.Off(sub)
}

// Emit sends an event to the server.
func (h *Handle) Emit(name string, args ...interface{}) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return model.ErrNotConnected
	}
	return conn.Emit(name, args...)
}

// Connected reports whether a socket is currently attached.
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Disconnect tears the connection down for good.
func (h *Handle) Disconnect() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	h.disp.Stop()
	close(h.done)
	h.log.Info("socket disconnected")
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Done is closed after Disconnect.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) UserID() string {
	return h.userID
}

// Unread is the number of messages from other users received since the last reset.
func (h *Handle) Unread() int {
	return int(h.unread.Load())
}

func (h *Handle) ResetUnread() {
	h.unread.Store(0)
}
