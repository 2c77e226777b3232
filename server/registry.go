package server

import (
	"fmt"
	"sync"

	"github.com/chazu/classvm/interp"
)

// ThreadRegistry maps the uint64 thread ids the wire protocol addresses
// threads by back to live *interp.Thread values, the same "opaque id ->
// server-side value" shape as the teacher's HandleStore, simplified to
// the one pinned-for-the-process-lifetime case the invoke/stack services
// need (a thread is never garbage-collected out from under an in-flight
// RPC the way a handle's heap object can be).
type ThreadRegistry struct {
	mu      sync.RWMutex
	threads map[uint64]*interp.Thread
}

// NewThreadRegistry creates an empty registry.
func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{threads: make(map[uint64]*interp.Thread)}
}

// Register records t under its own ID, the id the wire protocol then
// addresses it by.
func (r *ThreadRegistry) Register(t *interp.Thread) {
	r.mu.Lock()
	r.threads[t.ID] = t
	r.mu.Unlock()
}

// Unregister drops a thread's registration, called once the thread has
// returned to the facade for good.
func (r *ThreadRegistry) Unregister(id uint64) {
	r.mu.Lock()
	delete(r.threads, id)
	r.mu.Unlock()
}

// Lookup returns the thread registered under id, or an error naming it.
func (r *ThreadRegistry) Lookup(id uint64) (*interp.Thread, error) {
	r.mu.RLock()
	t, ok := r.threads[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("server: no thread registered under id %d", id)
	}
	return t, nil
}
