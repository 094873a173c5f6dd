package presence

import (
	"sync"

	"socialsync/internal/realtime"
)

// Subscriber is the part of a realtime handle the overlay listens on.
type Subscriber interface {
	On(name string, fn realtime.Handler) realtime.Subscription
	Off(sub realtime.Subscription)
}

// Overlay remembers the last presence seen for each user. A live entry beats
// the online flag embedded in a previously fetched record.
type Overlay struct {
	mu     sync.RWMutex
	online map[string]bool
}

func NewOverlay() *Overlay {
	return &Overlay{online: make(map[string]bool)}
}

func (o *Overlay) Apply(p realtime.PresenceChanged) {
	if p.UserID == "" {
		return
	}
	o.mu.Lock()
	o.online[p.UserID] = p.IsOnline
	o.mu.Unlock()
}

// IsOnline returns the live flag for userID, or fallback when no event has been seen.
func (o *Overlay) IsOnline(userID string, fallback bool) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.online[userID]; ok {
		return v
	}
	return fallback
}

// Snapshot copies the live map.
func (o *Overlay) Snapshot() map[string]bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]bool, len(o.online))
	for k, v := range o.online {
		out[k] = v
	}
	return out
}

// Reset forgets everything, e.g. on logout.
func (o *Overlay) Reset() {
	o.mu.Lock()
	o.online = make(map[string]bool)
	o.mu.Unlock()
}

// Attach feeds presence events from s into the overlay and returns a detach func.
func (o *Overlay) Attach(s Subscriber) func() {
	sub := s.On(realtime.EventPresence, func(ev realtime.Event) {
		var p realtime.PresenceChanged
		if err := ev.Decode(&p); err == nil {
			o.Apply(p)
		}
	})
	return func() { s.Off(sub) }
}
