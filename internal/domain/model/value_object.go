package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskInstanceID represents a unique identifier for a task instance
type TaskInstanceID struct {
	value string
}

// NewTaskInstanceID creates a new TaskInstanceID
func NewTaskInstanceID() TaskInstanceID {
	return TaskInstanceID{value: uuid.New().String()}
}

// NewTaskInstanceIDFromString creates a TaskInstanceID from an existing string
func NewTaskInstanceIDFromString(id string) (TaskInstanceID, error) {
	if id == "" {
		return TaskInstanceID{}, errors.New("task instance ID cannot be empty")
	}
	return TaskInstanceID{value: id}, nil
}

// String returns the string representation
func (t TaskInstanceID) String() string {
	return t.value
}

// Equals checks if two TaskInstanceIDs are equal
func (t TaskInstanceID) Equals(other TaskInstanceID) bool {
	return t.value == other.value
}

// ActorID identifies a human user interacting through the chat transport
type ActorID struct {
	value string
}

// NewActorID creates an ActorID from a transport-supplied identifier
func NewActorID(id string) (ActorID, error) {
	if id == "" {
		return ActorID{}, errors.New("actor ID cannot be empty")
	}
	return ActorID{value: id}, nil
}

// String returns the string representation
func (a ActorID) String() string {
	return a.value
}

// Equals checks if two ActorIDs are equal
func (a ActorID) Equals(other ActorID) bool {
	return a.value == other.value
}

// TaskType represents the kind of field procedure a task instance executes
type TaskType string

const (
	TaskTypeRefill      TaskType = "REFILL"
	TaskTypeIncassation TaskType = "INCASSATION"
	TaskTypeMaintenance TaskType = "MAINTENANCE"
	TaskTypeInspection  TaskType = "INSPECTION"
)

// String returns the string representation
func (t TaskType) String() string {
	return string(t)
}

// IsValid validates the task type
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeRefill, TaskTypeIncassation, TaskTypeMaintenance, TaskTypeInspection:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current status of a task instance
type TaskStatus string

const (
	StatusCreated    TaskStatus = "CREATED"
	StatusAssigned   TaskStatus = "ASSIGNED"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// String returns the string representation
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid validates the status
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transitions
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo checks if a status transition is valid.
// IN_PROGRESS -> ASSIGNED is the idle-timeout revert; captured step
// progress survives it.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	validTransitions := map[TaskStatus][]TaskStatus{
		StatusCreated:    {StatusAssigned, StatusCancelled},
		StatusAssigned:   {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled, StatusAssigned},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == next {
			return true
		}
	}
	return false
}

// FieldType represents the kind of value a step field captures
type FieldType string

const (
	FieldNumber FieldType = "NUMBER"
	FieldText   FieldType = "TEXT"
	FieldPhoto  FieldType = "PHOTO"
	FieldEnum   FieldType = "ENUM"
)

// IsValid validates the field type
func (f FieldType) IsValid() bool {
	switch f {
	case FieldNumber, FieldText, FieldPhoto, FieldEnum:
		return true
	default:
		return false
	}
}

// Role represents an actor role as supplied by the chat transport
type Role string

const (
	RoleOperator   Role = "OPERATOR"
	RoleWarehouse  Role = "WAREHOUSE"
	RoleTechnician Role = "TECHNICIAN"
	RoleManager    Role = "MANAGER"
)

// IsValid validates the role
func (r Role) IsValid() bool {
	switch r {
	case RoleOperator, RoleWarehouse, RoleTechnician, RoleManager:
		return true
	default:
		return false
	}
}

// Timestamp represents a point in time
type Timestamp struct {
	value time.Time
}

// NewTimestamp creates a new Timestamp with current time
func NewTimestamp() Timestamp {
	return Timestamp{value: time.Now().UTC()}
}

// NewTimestampFromTime creates a Timestamp from a time.Time value
func NewTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{value: t}
}

// Value returns the time.Time value
func (t Timestamp) Value() time.Time {
	return t.value
}

// Before checks if this timestamp is before another
func (t Timestamp) Before(other Timestamp) bool {
	return t.value.Before(other.value)
}

// After checks if this timestamp is after another
func (t Timestamp) After(other Timestamp) bool {
	return t.value.After(other.value)
}

// String returns the string representation
func (t Timestamp) String() string {
	return t.value.Format(time.RFC3339)
}
