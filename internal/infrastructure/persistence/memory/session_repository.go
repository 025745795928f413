package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/session"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

// SessionRepository is the in-process session store used for single-node
// deployments and tests. The Redis implementation replaces it when the
// engine runs behind multiple transport workers.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewSessionRepository creates an empty in-memory session store
func NewSessionRepository() repository.SessionRepository {
	return &SessionRepository{sessions: make(map[string]*session.Session)}
}

// Open stores a new session, enforcing one session per actor
func (r *SessionRepository) Open(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.ActorID().String()
	if _, exists := r.sessions[key]; exists {
		return fmt.Errorf("actor %s: %w", key, model.ErrActorBusy)
	}
	r.sessions[key] = snapshot(s)
	return nil
}

// Find retrieves the actor's session
func (r *SessionRepository) Find(ctx context.Context, actorID model.ActorID) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[actorID.String()]
	if !exists {
		return nil, fmt.Errorf("session for actor %s: %w", actorID, model.ErrNotFound)
	}
	return snapshot(s), nil
}

// Touch updates lastActivityAt for the actor's session
func (r *SessionRepository) Touch(ctx context.Context, actorID model.ActorID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[actorID.String()]
	if !exists {
		return fmt.Errorf("session for actor %s: %w", actorID, model.ErrNotFound)
	}
	r.sessions[actorID.String()] = session.Reconstruct(s.ActorID(), s.TaskInstanceID(), s.OpenedAt().Value(), at)
	return nil
}

// Close removes the actor's session; absent sessions are ignored
func (r *SessionRepository) Close(ctx context.Context, actorID model.ActorID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, actorID.String())
	return nil
}

// ListIdleSince retrieves sessions idle past the cutoff
func (r *SessionRepository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []*session.Session
	for _, s := range r.sessions {
		if s.LastActivityAt().Value().Before(cutoff) {
			idle = append(idle, snapshot(s))
		}
	}
	sortSessions(idle)
	return idle, nil
}

// List retrieves all open sessions
func (r *SessionRepository) List(ctx context.Context) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, snapshot(s))
	}
	sortSessions(out)
	return out, nil
}

// snapshot copies a session so callers never share the stored pointer
func snapshot(s *session.Session) *session.Session {
	return session.Reconstruct(s.ActorID(), s.TaskInstanceID(), s.OpenedAt().Value(), s.LastActivityAt().Value())
}

func sortSessions(list []*session.Session) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ActorID().String() < list[j].ActorID().String()
	})
}
