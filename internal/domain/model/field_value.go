package model

import (
	"encoding/json"
	"fmt"
)

// FieldValue is one validated, captured value of a step field.
// Absent optional fields are represented by a FieldValue with Null set.
type FieldValue struct {
	Type   FieldType `json:"type"`
	Null   bool      `json:"null,omitempty"`
	Number float64   `json:"number,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// NumberValue creates a captured NUMBER value
func NumberValue(v float64) FieldValue {
	return FieldValue{Type: FieldNumber, Number: v}
}

// TextValue creates a captured TEXT value
func TextValue(v string) FieldValue {
	return FieldValue{Type: FieldText, Text: v}
}

// PhotoValue creates a captured PHOTO value holding an opaque storage reference
func PhotoValue(ref string) FieldValue {
	return FieldValue{Type: FieldPhoto, Text: ref}
}

// EnumValue creates a captured ENUM value
func EnumValue(choice string) FieldValue {
	return FieldValue{Type: FieldEnum, Text: choice}
}

// NullValue creates the stored representation of an absent optional field
func NullValue(t FieldType) FieldValue {
	return FieldValue{Type: t, Null: true}
}

// Equals compares two captured values. Numbers compare numerically so a
// replayed "450" matches a stored 450.
func (v FieldValue) Equals(other FieldValue) bool {
	if v.Type != other.Type || v.Null != other.Null {
		return false
	}
	if v.Null {
		return true
	}
	if v.Type == FieldNumber {
		return v.Number == other.Number
	}
	return v.Text == other.Text
}

// String renders the value for prompts and logs
func (v FieldValue) String() string {
	if v.Null {
		return "-"
	}
	if v.Type == FieldNumber {
		return fmt.Sprintf("%g", v.Number)
	}
	return v.Text
}

// FieldValues maps field names to captured values
type FieldValues map[string]FieldValue

// Equals compares two captured field sets key by key
func (fv FieldValues) Equals(other FieldValues) bool {
	if len(fv) != len(other) {
		return false
	}
	for name, v := range fv {
		ov, ok := other[name]
		if !ok || !v.Equals(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON keeps the stored form stable for persistence
func (fv FieldValues) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]FieldValue(fv))
}

// UnmarshalJSON restores captured values from persistence
func (fv *FieldValues) UnmarshalJSON(data []byte) error {
	m := map[string]FieldValue{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*fv = m
	return nil
}
