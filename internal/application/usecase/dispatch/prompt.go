package dispatch

import (
	"fmt"
	"strings"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/catalog"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
)

// Choice is one structured option the transport can render as a button
type Choice struct {
	Label string
	Data  string
}

// Prompt is the rendered reply the transport displays to the actor
type Prompt struct {
	Text     string
	Choices  []Choice
	Terminal bool
}

// renderStep renders the field requirements of a step template. ENUM
// choices become structured buttons.
func renderStep(task *instance.TaskInstance, step *catalog.StepTemplate) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %d: %s\n", step.Order(), step.Prompt())

	var choices []Choice
	for _, f := range step.Fields() {
		line := fmt.Sprintf("- %s (%s", f.Name, f.Type)
		switch f.Type {
		case model.FieldNumber:
			if f.Min != nil && f.Max != nil {
				line += fmt.Sprintf(" %g-%g", *f.Min, *f.Max)
			}
		case model.FieldText:
			if f.MinLen != nil || f.MaxLen != nil {
				min, max := 0, 0
				if f.MinLen != nil {
					min = *f.MinLen
				}
				if f.MaxLen != nil {
					max = *f.MaxLen
				}
				line += fmt.Sprintf(" %d-%d chars", min, max)
			}
		case model.FieldEnum:
			for _, c := range f.Choices {
				choices = append(choices, Choice{Label: c, Data: fmt.Sprintf("%s=%s", f.Name, c)})
			}
		}
		if f.Optional {
			line += ", optional"
		}
		line += ")"
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "Target: %s", task.TargetEntityID())

	return Prompt{Text: b.String(), Choices: choices}
}

// renderCompleted renders the terminal completion message
func renderCompleted(task *instance.TaskInstance) Prompt {
	return Prompt{
		Text:     fmt.Sprintf("%s on %s completed. All steps recorded.", task.TaskType(), task.TargetEntityID()),
		Terminal: true,
	}
}

// renderCancelled renders the terminal cancellation message
func renderCancelled(task *instance.TaskInstance, reason string) Prompt {
	text := fmt.Sprintf("%s on %s cancelled.", task.TaskType(), task.TargetEntityID())
	if reason != "" {
		text += " Reason: " + reason
	}
	return Prompt{Text: text, Terminal: true}
}

// guidance maps a workflow failure kind to role-agnostic user guidance
func guidance(err error) string {
	switch {
	case isKind(err, model.ErrUnknownTaskType):
		return "This task type is not configured. Contact your manager."
	case isKind(err, model.ErrNotFound):
		return "Nothing found for that reference. Check the task and try again."
	case isKind(err, model.ErrAlreadyAssigned):
		return "This task has already been assigned."
	case isKind(err, model.ErrNotAssignedToActor):
		return "This task is not assigned to you."
	case isKind(err, model.ErrActorBusy):
		return "Finish or cancel your current task before starting another."
	case isKind(err, model.ErrStepOutOfOrder):
		return "Steps must be completed in order. Here is your current step."
	case isKind(err, model.ErrConflictingResubmission):
		return "This step was already recorded with different values. Ask a manager to correct it."
	case isKind(err, model.ErrTaskAlreadyTerminal):
		return "This task is already finished."
	case isKind(err, model.ErrDependencyUnavailable):
		return "The system did not respond in time. Please send that again."
	case isKind(err, model.ErrRoleNotPermitted):
		return "Your role cannot execute this task type."
	default:
		return "That could not be processed."
	}
}
