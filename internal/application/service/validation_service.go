package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/catalog"
)

// ValidationService checks raw step submissions against a step template and
// produces the captured field set. Validation is pure; the first failing
// field in template declaration order is reported so error messages are
// reproducible.
type ValidationService struct{}

// NewValidationService creates a validation service
func NewValidationService() *ValidationService {
	return &ValidationService{}
}

// Validate converts raw transport values into captured fields.
// Required fields must be present; absent optional fields are captured as
// null. Raw fields not declared by the template are rejected.
func (s *ValidationService) Validate(tpl *catalog.StepTemplate, raw map[string]string) (model.FieldValues, error) {
	captured := make(model.FieldValues)
	declared := make(map[string]bool)

	for _, spec := range tpl.Fields() {
		declared[spec.Name] = true
		value, ok := raw[spec.Name]
		if !ok || strings.TrimSpace(value) == "" {
			if spec.Optional {
				captured[spec.Name] = model.NullValue(spec.Type)
				continue
			}
			return nil, model.ValidationError{Field: spec.Name, Reason: "required field is missing"}
		}

		fv, err := validateField(spec, value)
		if err != nil {
			return nil, err
		}
		captured[spec.Name] = fv
	}

	var unknown []string
	for name := range raw {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, model.ValidationError{Field: unknown[0], Reason: "field is not part of this step"}
	}

	return captured, nil
}

func validateField(spec catalog.FieldSpec, value string) (model.FieldValue, error) {
	switch spec.Type {
	case model.FieldNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return model.FieldValue{}, model.ValidationError{Field: spec.Name, Reason: "not a number"}
		}
		if spec.Min != nil && n < *spec.Min {
			return model.FieldValue{}, model.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("below min %g", *spec.Min),
			}
		}
		if spec.Max != nil && n > *spec.Max {
			return model.FieldValue{}, model.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("exceeds max %g", *spec.Max),
			}
		}
		return model.NumberValue(n), nil

	case model.FieldText:
		length := utf8.RuneCountInString(value)
		if spec.MinLen != nil && length < *spec.MinLen {
			return model.FieldValue{}, model.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("shorter than %d characters", *spec.MinLen),
			}
		}
		if spec.MaxLen != nil && length > *spec.MaxLen {
			return model.FieldValue{}, model.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("longer than %d characters", *spec.MaxLen),
			}
		}
		return model.TextValue(value), nil

	case model.FieldPhoto:
		// The upload collaborator resolves photo bytes to a storage
		// reference before submission reaches the engine.
		if strings.TrimSpace(value) == "" {
			return model.FieldValue{}, model.ValidationError{Field: spec.Name, Reason: "photo reference is empty"}
		}
		return model.PhotoValue(value), nil

	case model.FieldEnum:
		for _, choice := range spec.Choices {
			if value == choice {
				return model.EnumValue(value), nil
			}
		}
		return model.FieldValue{}, model.ValidationError{
			Field:  spec.Name,
			Reason: fmt.Sprintf("must be one of %s", strings.Join(spec.Choices, ", ")),
		}

	default:
		return model.FieldValue{}, model.ValidationError{Field: spec.Name, Reason: "unsupported field type"}
	}
}
