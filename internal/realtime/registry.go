package realtime

// Registry is the in-memory map of live sessions. It is a plain data
// structure: the owning Hub serializes all access behind its mutex, so the
// registry itself carries no lock.
type Registry struct {
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes and returns the session. Removing an absent id is a no-op,
// which keeps the eviction path idempotent.
func (r *Registry) Remove(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// List returns a snapshot so callers can iterate while the live map mutates.
func (r *Registry) List() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
