package instance

import (
	"testing"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
)

func TestNewStepExecution(t *testing.T) {
	actor := mustActor(t, "op-1")
	taskID := model.NewTaskInstanceID()
	fields := model.FieldValues{"weight": model.NumberValue(450)}

	e, err := NewStepExecution(taskID, "REFILL/2", 2, fields, actor)
	if err != nil {
		t.Fatalf("NewStepExecution failed: %v", err)
	}
	if e.Supersedes() != nil {
		t.Error("original capture should not supersede anything")
	}
	if e.StepOrder() != 2 {
		t.Errorf("stepOrder = %d, want 2", e.StepOrder())
	}

	if _, err := NewStepExecution(taskID, "", 2, fields, actor); err == nil {
		t.Error("expected error for empty template ID")
	}
	if _, err := NewStepExecution(taskID, "REFILL/0", 0, fields, actor); err == nil {
		t.Error("expected error for step order below 1")
	}
	if _, err := NewStepExecution(taskID, "REFILL/2", 2, nil, actor); err == nil {
		t.Error("expected error for empty captured fields")
	}
}

func TestStepExecutionSupersede(t *testing.T) {
	actor := mustActor(t, "op-1")
	manager := mustActor(t, "mgr-1")
	taskID := model.NewTaskInstanceID()

	original, err := NewStepExecution(taskID, "REFILL/2", 2, model.FieldValues{"weight": model.NumberValue(450)}, actor)
	if err != nil {
		t.Fatalf("NewStepExecution failed: %v", err)
	}

	corrected, err := original.Supersede(model.FieldValues{"weight": model.NumberValue(455)}, manager)
	if err != nil {
		t.Fatalf("Supersede failed: %v", err)
	}
	if corrected.Supersedes() == nil || !corrected.Supersedes().Equals(original.ID()) {
		t.Error("correction should reference the original record")
	}
	if corrected.ID().Equals(original.ID()) {
		t.Error("correction must get its own ID")
	}
	if !corrected.ActorID().Equals(manager) {
		t.Error("correction should record the correcting actor")
	}
	// The original record is untouched.
	if original.CapturedFields()["weight"].Number != 450 {
		t.Error("original capture must remain unchanged")
	}
}

func TestStepExecutionIDsSortByTime(t *testing.T) {
	actor := mustActor(t, "op-1")
	taskID := model.NewTaskInstanceID()
	fields := model.FieldValues{"weight": model.NumberValue(1)}

	first, _ := NewStepExecution(taskID, "REFILL/1", 1, fields, actor)
	time.Sleep(2 * time.Millisecond)
	second, _ := NewStepExecution(taskID, "REFILL/1", 1, fields, actor)
	if first.ID().String() > second.ID().String() {
		t.Error("later capture should not sort before an earlier one")
	}
}

func TestStepExecutionIDParsing(t *testing.T) {
	if _, err := NewStepExecutionIDFromString(""); err == nil {
		t.Error("expected error for empty ID")
	}
	if _, err := NewStepExecutionIDFromString("not-a-ulid"); err == nil {
		t.Error("expected error for malformed ID")
	}
	id := NewStepExecutionID()
	restored, err := NewStepExecutionIDFromString(id.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !restored.Equals(id) {
		t.Error("round trip changed the ID")
	}
}
