package instance

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vhm24/taskflow/internal/domain/model"
)

// StepExecutionID is the time-ordered identifier of a captured step result
type StepExecutionID struct {
	value string
}

// NewStepExecutionID generates a ULID so audit listings sort by capture time
func NewStepExecutionID() StepExecutionID {
	return StepExecutionID{value: ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()}
}

// NewStepExecutionIDFromString restores an ID from persistence
func NewStepExecutionIDFromString(id string) (StepExecutionID, error) {
	if id == "" {
		return StepExecutionID{}, errors.New("step execution ID cannot be empty")
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return StepExecutionID{}, fmt.Errorf("invalid step execution ID %q: %w", id, err)
	}
	return StepExecutionID{value: id}, nil
}

// String returns the string representation
func (s StepExecutionID) String() string { return s.value }

// Equals checks if two StepExecutionIDs are equal
func (s StepExecutionID) Equals(other StepExecutionID) bool { return s.value == other.value }

// StepExecution is the immutable record of one completed step. Corrections
// create a new record superseding the prior one; rows are never edited.
type StepExecution struct {
	id             StepExecutionID
	taskInstanceID model.TaskInstanceID
	stepTemplateID string
	stepOrder      int
	capturedFields model.FieldValues
	actorID        model.ActorID
	completedAt    model.Timestamp
	supersedes     *StepExecutionID
}

// NewStepExecution captures a validated step result
func NewStepExecution(
	taskInstanceID model.TaskInstanceID,
	stepTemplateID string,
	stepOrder int,
	capturedFields model.FieldValues,
	actorID model.ActorID,
) (*StepExecution, error) {
	if stepTemplateID == "" {
		return nil, errors.New("step template ID cannot be empty")
	}
	if stepOrder < 1 {
		return nil, fmt.Errorf("step order must be at least 1, got %d", stepOrder)
	}
	if len(capturedFields) == 0 {
		return nil, errors.New("captured fields cannot be empty")
	}
	return &StepExecution{
		id:             NewStepExecutionID(),
		taskInstanceID: taskInstanceID,
		stepTemplateID: stepTemplateID,
		stepOrder:      stepOrder,
		capturedFields: capturedFields,
		actorID:        actorID,
		completedAt:    model.NewTimestamp(),
	}, nil
}

// ReconstructStepExecution restores a step execution from persisted data
func ReconstructStepExecution(
	id StepExecutionID,
	taskInstanceID model.TaskInstanceID,
	stepTemplateID string,
	stepOrder int,
	capturedFields model.FieldValues,
	actorID model.ActorID,
	completedAt time.Time,
	supersedes *StepExecutionID,
) *StepExecution {
	return &StepExecution{
		id:             id,
		taskInstanceID: taskInstanceID,
		stepTemplateID: stepTemplateID,
		stepOrder:      stepOrder,
		capturedFields: capturedFields,
		actorID:        actorID,
		completedAt:    model.NewTimestampFromTime(completedAt),
		supersedes:     supersedes,
	}
}

// Supersede captures a correcting record that replaces this one
func (s *StepExecution) Supersede(capturedFields model.FieldValues, actorID model.ActorID) (*StepExecution, error) {
	next, err := NewStepExecution(s.taskInstanceID, s.stepTemplateID, s.stepOrder, capturedFields, actorID)
	if err != nil {
		return nil, err
	}
	prior := s.id
	next.supersedes = &prior
	return next, nil
}

// ID returns the step execution ID
func (s *StepExecution) ID() StepExecutionID { return s.id }

// TaskInstanceID returns the owning task instance (back-reference only)
func (s *StepExecution) TaskInstanceID() model.TaskInstanceID { return s.taskInstanceID }

// StepTemplateID returns the catalog template this execution fulfilled
func (s *StepExecution) StepTemplateID() string { return s.stepTemplateID }

// StepOrder returns the 1-based order of the fulfilled step
func (s *StepExecution) StepOrder() int { return s.stepOrder }

// CapturedFields returns the validated captured values
func (s *StepExecution) CapturedFields() model.FieldValues { return s.capturedFields }

// ActorID returns who captured the step
func (s *StepExecution) ActorID() model.ActorID { return s.actorID }

// CompletedAt returns when the step was captured
func (s *StepExecution) CompletedAt() model.Timestamp { return s.completedAt }

// Supersedes returns the record this execution corrects, nil for originals
func (s *StepExecution) Supersedes() *StepExecutionID { return s.supersedes }
