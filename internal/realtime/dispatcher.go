package realtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const dispatchBuffer = 256

// dispatcher delivers events to handlers on a single goroutine, so handlers
// never race each other.
type dispatcher struct {
	events  chan Event
	handle  func(Event)
	log     *zap.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

func newDispatcher(handle func(Event), log *zap.Logger) *dispatcher {
	return &dispatcher{
		events: make(chan Event, dispatchBuffer),
		handle: handle,
		log:    log,
	}
}

func (d *dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.run()
}

// Stop ends the dispatch goroutine and waits for it. Events still queued are dropped.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
}

// Enqueue hands ev to the dispatch goroutine. It blocks while the buffer is
// full and gives up once the dispatcher stops.
func (d *dispatcher) Enqueue(ev Event) bool {
	d.mu.Lock()
	ctx := d.ctx
	started := d.started
	d.mu.Unlock()
	if !started {
		return false
	}

	select {
	case d.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked", zap.String("event", ev.Name), zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	d.handle(ev)
}
