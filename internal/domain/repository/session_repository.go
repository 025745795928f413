package repository

import (
	"context"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/session"
)

// SessionRepository is the backing store for actor sessions. The store
// enforces the at-most-one-session-per-actor invariant on Open; lookups are
// single-key and require no ordering.
type SessionRepository interface {
	// Open stores a new session; model.ErrActorBusy when the actor already
	// has one
	Open(ctx context.Context, s *session.Session) error

	// Find retrieves the actor's session; model.ErrNotFound when absent
	Find(ctx context.Context, actorID model.ActorID) (*session.Session, error)

	// Touch updates lastActivityAt for the actor's session
	Touch(ctx context.Context, actorID model.ActorID, at time.Time) error

	// Close removes the actor's session; closing an absent session is not an
	// error
	Close(ctx context.Context, actorID model.ActorID) error

	// ListIdleSince retrieves sessions whose last activity predates the cutoff
	ListIdleSince(ctx context.Context, cutoff time.Time) ([]*session.Session, error)

	// List retrieves all open sessions
	List(ctx context.Context) ([]*session.Session, error)
}
