package viewmodel

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// localPrefix marks ids of optimistic records the server has not confirmed yet.
const localPrefix = "local-"

// newMarker returns a fresh client marker and the local id built from it.
func newMarker() (clientID, localID string) {
	clientID = uuid.NewString()
	return clientID, localPrefix + clientID
}

// IsLocalID reports whether id names an unconfirmed optimistic record.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localPrefix)
}

// pendingEdits remembers how to undo each in-flight optimistic edit. A failed
// edit undoes only itself, leaving realtime updates applied meanwhile alone.
type pendingEdits struct {
	mu    sync.Mutex
	undos map[string]func()
}

func newPendingEdits() *pendingEdits {
	return &pendingEdits{undos: make(map[string]func())}
}

// begin registers undo and returns the marker naming the edit.
func (p *pendingEdits) begin(undo func()) string {
	marker := uuid.NewString()
	p.mu.Lock()
	p.undos[marker] = undo
	p.mu.Unlock()
	return marker
}

// beginWith registers undo under a marker the caller already minted.
func (p *pendingEdits) beginWith(marker string, undo func()) {
	p.mu.Lock()
	p.undos[marker] = undo
	p.mu.Unlock()
}

// commit forgets the edit after the server confirmed it.
func (p *pendingEdits) commit(marker string) {
	p.mu.Lock()
	delete(p.undos, marker)
	p.mu.Unlock()
}

// revert runs the undo for marker once.
func (p *pendingEdits) revert(marker string) {
	p.mu.Lock()
	undo := p.undos[marker]
	delete(p.undos, marker)
	p.mu.Unlock()
	if undo != nil {
		undo()
	}
}

// Len is the number of edits in flight.
func (p *pendingEdits) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undos)
}
