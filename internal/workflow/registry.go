package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks the open dashboard sessions. Sessions idle for longer
// than the TTL are evicted when new ones are opened.
type Registry struct {
	deps *Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	owner    string
	lastSeen time.Time
}

func NewRegistry(deps *Deps, idleTTL time.Duration) *Registry {
	deps.normalize()
	return &Registry{
		deps:     deps,
		ttl:      idleTTL,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// Open creates a session for identity and returns its ID. owner names the
// credential that may use the session afterwards.
func (r *Registry) Open(identity *Identity, owner string) (string, *Session) {
	s := NewSession(r.deps, identity)
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.sessions[id] = &entry{session: s, owner: owner, lastSeen: r.now()}
	return id, s
}

// Get returns the session with id if it was opened by owner. Sessions
// without an owner cannot be fetched.
func (r *Registry) Get(id, owner string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.expiredLocked(e) {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	if owner == "" || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked() {
	for id, e := range r.sessions {
		if r.expiredLocked(e) {
			delete(r.sessions, id)
		}
	}
}

func (r *Registry) expiredLocked(e *entry) bool {
	return r.ttl > 0 && r.now().Sub(e.lastSeen) > r.ttl
}
