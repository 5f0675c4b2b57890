package server

import (
	"sync"

	"github.com/rustyeddy/papertrade/session"
)

// registry holds the live in-memory sessions, one per session id. A session
// is created on first use by loading persisted state and fetching bars; after
// that all commands hit the same instance, preserving the single-writer
// model.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session.Session)}
}

func (r *registry) get(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) put(id string, s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// endAll ends every live session, flushing pending saves. Used on shutdown.
func (r *registry) endAll() {
	r.mu.Lock()
	live := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range live {
		s.End()
	}
}
