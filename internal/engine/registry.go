package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the live sessions keyed by tenant id. It is owned by the
// process lifecycle; there is no ambient global registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session. Returns an error if the tenant id is already
// registered.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := s.Tenant().ID
	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("tenant already registered: %s", id)
	}
	r.sessions[id] = s
	return nil
}

// Remove drops a session by tenant id.
func (r *Registry) Remove(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tenantID)
}

// Lookup finds a session by tenant id.
func (r *Registry) Lookup(tenantID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[tenantID]
	return s, ok
}

// All returns every session sorted by tenant id.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tenant().ID < out[j].Tenant().ID
	})
	return out
}
