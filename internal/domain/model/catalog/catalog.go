package catalog

import (
	"fmt"
	"sort"

	"github.com/vhm24/taskflow/internal/domain/model"
)

// FieldSpec declares one required or optional field of a step template.
// Constraint fields apply per type: Min/Max to NUMBER, MinLen/MaxLen to
// TEXT, Choices to ENUM. PHOTO fields take no constraints; the value is an
// opaque storage reference produced by the upload collaborator.
type FieldSpec struct {
	Name     string
	Type     model.FieldType
	Optional bool
	Min      *float64
	Max      *float64
	MinLen   *int
	MaxLen   *int
	Choices  []string
}

// Validate checks the spec is internally consistent
func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("field %q: invalid type %q", f.Name, f.Type)
	}
	switch f.Type {
	case model.FieldNumber:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("field %q: min %g exceeds max %g", f.Name, *f.Min, *f.Max)
		}
	case model.FieldText:
		if f.MinLen != nil && f.MaxLen != nil && *f.MinLen > *f.MaxLen {
			return fmt.Errorf("field %q: minLen %d exceeds maxLen %d", f.Name, *f.MinLen, *f.MaxLen)
		}
	case model.FieldEnum:
		if len(f.Choices) == 0 {
			return fmt.Errorf("field %q: enum requires at least one choice", f.Name)
		}
		seen := map[string]bool{}
		for _, c := range f.Choices {
			if c == "" {
				return fmt.Errorf("field %q: empty enum choice", f.Name)
			}
			if seen[c] {
				return fmt.Errorf("field %q: duplicate enum choice %q", f.Name, c)
			}
			seen[c] = true
		}
	}
	return nil
}

// StepTemplate is the immutable definition of one step within a task type.
// Templates are created at catalog load time and never mutated afterwards.
type StepTemplate struct {
	id       string
	taskType model.TaskType
	order    int
	name     string
	prompt   string
	fields   []FieldSpec
	optional bool
}

// NewStepTemplate creates a validated step template
func NewStepTemplate(taskType model.TaskType, order int, name, prompt string, fields []FieldSpec, optional bool) (*StepTemplate, error) {
	if !taskType.IsValid() {
		return nil, fmt.Errorf("invalid task type %q", taskType)
	}
	if order < 1 {
		return nil, fmt.Errorf("step order must be at least 1, got %d", order)
	}
	if name == "" {
		return nil, fmt.Errorf("step name cannot be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("step %q: at least one field is required", name)
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("step %q: %w", name, err)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("step %q: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = true
	}
	return &StepTemplate{
		id:       fmt.Sprintf("%s/%d", taskType, order),
		taskType: taskType,
		order:    order,
		name:     name,
		prompt:   prompt,
		fields:   fields,
		optional: optional,
	}, nil
}

// ID returns the template identifier, unique across the catalog
func (s *StepTemplate) ID() string { return s.id }

// TaskType returns the owning task type
func (s *StepTemplate) TaskType() model.TaskType { return s.taskType }

// Order returns the 1-based position within the task type
func (s *StepTemplate) Order() int { return s.order }

// Name returns the step name
func (s *StepTemplate) Name() string { return s.name }

// Prompt returns the operator-facing instruction text
func (s *StepTemplate) Prompt() string { return s.prompt }

// Optional reports whether the step may be skipped
func (s *StepTemplate) Optional() bool { return s.optional }

// Fields returns a copy of the field specs in declaration order
func (s *StepTemplate) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Catalog is the read-only step definition registry. It is loaded once at
// process start and safely shared without locking.
type Catalog struct {
	steps map[model.TaskType][]*StepTemplate
}

// New builds a catalog from per-type step lists. Orders must be unique and
// contiguous starting at 1.
func New(steps map[model.TaskType][]*StepTemplate) (*Catalog, error) {
	c := &Catalog{steps: make(map[model.TaskType][]*StepTemplate, len(steps))}
	for taskType, list := range steps {
		if !taskType.IsValid() {
			return nil, fmt.Errorf("invalid task type %q", taskType)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("task type %s: at least one step is required", taskType)
		}
		ordered := make([]*StepTemplate, len(list))
		copy(ordered, list)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })
		for i, st := range ordered {
			if st.taskType != taskType {
				return nil, fmt.Errorf("task type %s: step %q belongs to %s", taskType, st.name, st.taskType)
			}
			if st.order != i+1 {
				return nil, fmt.Errorf("task type %s: step orders must be contiguous from 1, got %d at position %d", taskType, st.order, i+1)
			}
		}
		c.steps[taskType] = ordered
	}
	return c, nil
}

// Steps returns the ordered step templates for a task type
func (c *Catalog) Steps(taskType model.TaskType) ([]*StepTemplate, error) {
	list, ok := c.steps[taskType]
	if !ok {
		return nil, fmt.Errorf("task type %s: %w", taskType, model.ErrUnknownTaskType)
	}
	out := make([]*StepTemplate, len(list))
	copy(out, list)
	return out, nil
}

// Step returns the template at the given 1-based order
func (c *Catalog) Step(taskType model.TaskType, order int) (*StepTemplate, error) {
	list, ok := c.steps[taskType]
	if !ok {
		return nil, fmt.Errorf("task type %s: %w", taskType, model.ErrUnknownTaskType)
	}
	if order < 1 || order > len(list) {
		return nil, fmt.Errorf("task type %s step %d: %w", taskType, order, model.ErrNotFound)
	}
	return list[order-1], nil
}

// StepCount returns the number of steps registered for a task type
func (c *Catalog) StepCount(taskType model.TaskType) (int, error) {
	list, ok := c.steps[taskType]
	if !ok {
		return 0, fmt.Errorf("task type %s: %w", taskType, model.ErrUnknownTaskType)
	}
	return len(list), nil
}

// TaskTypes returns the registered task types in stable order
func (c *Catalog) TaskTypes() []model.TaskType {
	out := make([]model.TaskType, 0, len(c.steps))
	for taskType := range c.steps {
		out = append(out, taskType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
