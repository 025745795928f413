package session

import (
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
)

// Session is the ephemeral binding of an actor to its single active task.
// It exists from start until completion, cancellation, or idle expiry.
// The per-actor exclusion scope hangs off this binding: all mutating
// operations for one actor serialize on it.
type Session struct {
	actorID        model.ActorID
	taskInstanceID model.TaskInstanceID
	openedAt       model.Timestamp
	lastActivityAt model.Timestamp
}

// New opens a session binding actor to task
func New(actorID model.ActorID, taskInstanceID model.TaskInstanceID) *Session {
	now := model.NewTimestamp()
	return &Session{
		actorID:        actorID,
		taskInstanceID: taskInstanceID,
		openedAt:       now,
		lastActivityAt: now,
	}
}

// Reconstruct restores a session from the backing store
func Reconstruct(actorID model.ActorID, taskInstanceID model.TaskInstanceID, openedAt, lastActivityAt time.Time) *Session {
	return &Session{
		actorID:        actorID,
		taskInstanceID: taskInstanceID,
		openedAt:       model.NewTimestampFromTime(openedAt),
		lastActivityAt: model.NewTimestampFromTime(lastActivityAt),
	}
}

// ActorID returns the owning actor
func (s *Session) ActorID() model.ActorID { return s.actorID }

// TaskInstanceID returns the bound task instance. The task outlives the
// session; this is a lookup reference, not ownership.
func (s *Session) TaskInstanceID() model.TaskInstanceID { return s.taskInstanceID }

// OpenedAt returns when the session was opened
func (s *Session) OpenedAt() model.Timestamp { return s.openedAt }

// LastActivityAt returns the most recent touch
func (s *Session) LastActivityAt() model.Timestamp { return s.lastActivityAt }

// Touch records actor activity
func (s *Session) Touch() {
	s.lastActivityAt = model.NewTimestamp()
}

// IdleSince reports how long the session has been idle at the given instant
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.lastActivityAt.Value())
}

// IsIdleExpired reports whether the session exceeded the idle threshold
func (s *Session) IsIdleExpired(now time.Time, idleTimeout time.Duration) bool {
	return s.IdleSince(now) > idleTimeout
}
