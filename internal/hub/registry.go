package hub

import (
	"sync"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
)

// Binding is what a connection currently is: host or team of one room.
type Binding struct {
	Code string
	Role engine.Role
}

// Registry maps connection ids to their room. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Binding)}
}

func (r *Registry) Bind(connID string, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = b
}

func (r *Registry) Lookup(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[connID]
	return b, ok
}

func (r *Registry) Unbind(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[connID]
	delete(r.conns, connID)
	return b, ok
}

// UnbindIf drops the binding only if it still points at code.
func (r *Registry) UnbindIf(connID, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[connID]; ok && b.Code == code {
		delete(r.conns, connID)
		return true
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
