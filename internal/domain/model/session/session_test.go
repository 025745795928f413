package session

import (
	"testing"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
)

func TestSessionIdleExpiry(t *testing.T) {
	actor, err := model.NewActorID("op-1")
	if err != nil {
		t.Fatalf("NewActorID failed: %v", err)
	}
	taskID := model.NewTaskInstanceID()

	opened := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Reconstruct(actor, taskID, opened, opened)

	tests := []struct {
		name    string
		now     time.Time
		timeout time.Duration
		want    bool
	}{
		{"fresh", opened.Add(time.Minute), 30 * time.Minute, false},
		{"at threshold", opened.Add(30 * time.Minute), 30 * time.Minute, false},
		{"past threshold", opened.Add(31 * time.Minute), 30 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsIdleExpired(tt.now, tt.timeout); got != tt.want {
				t.Errorf("IsIdleExpired = %v, want %v", got, tt.want)
			}
		})
	}

	if idle := s.IdleSince(opened.Add(5 * time.Minute)); idle != 5*time.Minute {
		t.Errorf("IdleSince = %s, want 5m", idle)
	}
}

func TestSessionTouch(t *testing.T) {
	actor, _ := model.NewActorID("op-1")
	s := New(actor, model.NewTaskInstanceID())

	before := s.LastActivityAt()
	time.Sleep(time.Millisecond)
	s.Touch()
	if !s.LastActivityAt().After(before) {
		t.Error("Touch should move lastActivityAt forward")
	}
	if s.OpenedAt().After(s.LastActivityAt()) {
		t.Error("openedAt should not move")
	}
}
