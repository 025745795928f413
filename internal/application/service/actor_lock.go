package service

import (
	"sync"

	"github.com/vhm24/taskflow/internal/domain/model"
)

// ActorLockMap provides the per-actor mutual exclusion scope. Start,
// SubmitStep, Cancel, and the idle sweep for one actor never interleave;
// actions for different actors proceed in parallel.
//
// The map is shared between WorkflowService and SweepService so a late
// submission cannot race an expiry revert for the same actor.
type ActorLockMap struct {
	mu    sync.Mutex
	locks map[string]*actorLock
}

type actorLock struct {
	mu   sync.Mutex
	refs int
}

// NewActorLockMap creates an empty lock map
func NewActorLockMap() *ActorLockMap {
	return &ActorLockMap{locks: make(map[string]*actorLock)}
}

// Lock acquires the exclusion scope for an actor and returns the unlock
// function. Entries are reference counted and removed when unused so the
// map does not grow with actor churn.
func (m *ActorLockMap) Lock(actorID model.ActorID) func() {
	return m.lockKey("actor/" + actorID.String())
}

// LockTask acquires an exclusion scope keyed by task instance. Assign uses
// it to serialize concurrent claims on the same CREATED task, which have no
// actor scope yet.
func (m *ActorLockMap) LockTask(taskID model.TaskInstanceID) func() {
	return m.lockKey("task/" + taskID.String())
}

func (m *ActorLockMap) lockKey(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &actorLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
