package realtime

import "sync"

// Handler receives one event. Handlers run on the dispatcher goroutine, one at a time.
type Handler func(ev Event)

// Subscription identifies one registered handler.
type Subscription struct {
	name string
	id   uint64
}

// Name is the canonical event name the subscription listens to.
func (s Subscription) Name() string {
	return s.name
}

type entry struct {
	id uint64
	fn Handler
}

// Emitter is a registry of handlers keyed by event name.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]entry)}
}

// On registers fn for the canonical form of name.
func (e *Emitter) On(name string, fn Handler) Subscription {
	name = Canonical(name)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers[name] = append(e.handlers[name], entry{id: e.nextID, fn: fn})
	return Subscription{name: name, id: e.nextID}
}

// Off removes a subscription. Unknown subscriptions are ignored.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.handlers[sub.name]
	for i, en := range list {
		if en.id == sub.id {
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(e.handlers, sub.name)
			} else {
				e.handlers[sub.name] = next
			}
			return
		}
	}
}

// Count returns how many handlers listen to name.
func (e *Emitter) Count(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[Canonical(name)])
}

// Publish calls every handler for ev.Name in registration order.
func (e *Emitter) Publish(ev Event) {
	e.mu.RLock()
	list := e.handlers[ev.Name]
	e.mu.RUnlock()

	for _, en := range list {
		en.fn(ev)
	}
}
