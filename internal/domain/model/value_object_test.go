package model

import "testing"

func TestTaskStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{"created to assigned", StatusCreated, StatusAssigned, true},
		{"created to cancelled", StatusCreated, StatusCancelled, true},
		{"created to in_progress", StatusCreated, StatusInProgress, false},
		{"created to completed", StatusCreated, StatusCompleted, false},
		{"assigned to in_progress", StatusAssigned, StatusInProgress, true},
		{"assigned to cancelled", StatusAssigned, StatusCancelled, true},
		{"assigned to completed", StatusAssigned, StatusCompleted, false},
		{"in_progress to completed", StatusInProgress, StatusCompleted, true},
		{"in_progress to cancelled", StatusInProgress, StatusCancelled, true},
		{"in_progress to assigned (idle revert)", StatusInProgress, StatusAssigned, true},
		{"in_progress to created", StatusInProgress, StatusCreated, false},
		{"completed is terminal", StatusCompleted, StatusAssigned, false},
		{"completed to cancelled", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusAssigned, false},
		{"cancelled to completed", StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{StatusCreated, false},
		{StatusAssigned, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTaskTypeIsValid(t *testing.T) {
	for _, valid := range []TaskType{TaskTypeRefill, TaskTypeIncassation, TaskTypeMaintenance, TaskTypeInspection} {
		if !valid.IsValid() {
			t.Errorf("expected %s to be valid", valid)
		}
	}
	for _, invalid := range []TaskType{"", "refill", "DELIVERY"} {
		if invalid.IsValid() {
			t.Errorf("expected %q to be invalid", invalid)
		}
	}
}

func TestRoleIsValid(t *testing.T) {
	for _, valid := range []Role{RoleOperator, RoleWarehouse, RoleTechnician, RoleManager} {
		if !valid.IsValid() {
			t.Errorf("expected %s to be valid", valid)
		}
	}
	if Role("ADMIN").IsValid() {
		t.Error("expected ADMIN to be invalid")
	}
}

func TestNewActorID(t *testing.T) {
	if _, err := NewActorID(""); err == nil {
		t.Error("expected error for empty actor ID")
	}
	id, err := NewActorID("tg:12345")
	if err != nil {
		t.Fatalf("NewActorID failed: %v", err)
	}
	if id.String() != "tg:12345" {
		t.Errorf("String() = %q, want tg:12345", id.String())
	}
}
