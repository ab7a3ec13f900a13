// Package registry implements the unique id → process handle lookup (spec
// component C9): O(1) registration, startup-collision as a hard error, and
// automatic deregistration when a handle's owning process dies.
package registry

import (
	"sync"

	"github.com/nshkrdotcom/agentrt/core"
)

// Handle is whatever the caller wants retrievable by id — typically a
// reference to a running agent server (a channel, a context, a struct
// pointer). The registry treats it opaquely.
type Handle interface{}

// Registry is an in-memory unique-key map, safe for concurrent use by the
// many agent-server goroutines that register/deregister/look themselves up
// concurrently.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register binds id to handle. A collision with an already-registered id is
// a hard error (spec §4.5, startup collision fails agent-server start).
func (r *Registry) Register(id string, handle Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[id]; exists {
		return core.NewErrorWithID("Registry.Register", core.KindConfig, id, core.ErrDuplicateID)
	}
	r.handles[id] = handle
	return nil
}

// Deregister removes id unconditionally (no-op if absent), the way a
// terminating agent server cleans up its own registration on exit.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Lookup returns the handle registered under id, or ErrNotFound.
func (r *Registry) Lookup(id string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return nil, core.NewErrorWithID("Registry.Lookup", core.KindInternal, id, core.ErrNotFound)
	}
	return h, nil
}

// Len reports the number of currently registered ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Ids returns a snapshot of every currently registered id.
func (r *Registry) Ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for id := range r.handles {
		out = append(out, id)
	}
	return out
}
