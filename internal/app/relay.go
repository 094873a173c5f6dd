package app

import (
	"sync"

	"socialsync/internal/model"
	"socialsync/internal/realtime"
)

// relay is the bus screens subscribe on. Screen handlers live in the relay's
// own emitter; the current socket carries one forwarder per event name. A
// reconnect moves the forwarders, so screens opened while offline start
// receiving events as soon as a socket is attached.
type relay struct {
	local *realtime.Emitter

	mu      sync.Mutex
	handle  *realtime.Handle
	names   map[string]int
	forward map[string]realtime.Subscription
}

func newRelay() *relay {
	return &relay{
		local:   realtime.NewEmitter(),
		names:   make(map[string]int),
		forward: make(map[string]realtime.Subscription),
	}
}

func (r *relay) On(name string, fn realtime.Handler) realtime.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.local.On(name, fn)
	r.names[sub.Name()]++
	r.forwardLocked(sub.Name())
	return sub
}

func (r *relay) Off(sub realtime.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.local.Count(sub.Name())
	r.local.Off(sub)
	if r.local.Count(sub.Name()) == before {
		return
	}
	r.names[sub.Name()]--
	if r.names[sub.Name()] > 0 {
		return
	}
	delete(r.names, sub.Name())
	if fs, ok := r.forward[sub.Name()]; ok {
		r.handle.Off(fs)
		delete(r.forward, sub.Name())
	}
}

func (r *relay) Emit(name string, args ...interface{}) error {
	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()
	if h == nil {
		return model.ErrNotConnected
	}
	return h.Emit(name, args...)
}

// bind moves every forwarder onto h. A nil h keeps screens subscribed but silent.
func (r *relay) bind(h *realtime.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == h {
		return
	}
	for name, fs := range r.forward {
		r.handle.Off(fs)
		delete(r.forward, name)
	}
	r.handle = h
	for name := range r.names {
		r.forwardLocked(name)
	}
}

func (r *relay) forwardLocked(name string) {
	if r.handle == nil {
		return
	}
	if _, ok := r.forward[name]; ok {
		return
	}
	r.forward[name] = r.handle.On(name, r.local.Publish)
}
