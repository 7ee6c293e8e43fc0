package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxStringLength is the column width of every string attribute.
const MaxStringLength = 255

// Field error codes.
const (
	CodeNotNull = "NotNull"
	CodeSize    = "Size"
)

// FieldError describes one violated constraint.
type FieldError struct {
	ObjectName string `json:"objectName"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// ValidationError is returned by Validate when one or more constraints fail.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, ", "))
}

type validator struct {
	entity string
	fields []FieldError
}

func newValidator(entity string) *validator {
	return &validator{entity: entity}
}

func (v *validator) add(field, code string) {
	v.fields = append(v.fields, FieldError{ObjectName: v.entity, Field: field, Message: code})
}

func (v *validator) maxLen(field string, value *string) {
	if value != nil && utf8.RuneCountInString(*value) > MaxStringLength {
		v.add(field, CodeSize)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Entity: v.entity, Fields: v.fields}
}

func sameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = cloneString(src)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to i.
func Int64Ptr(i int64) *int64 {
	return &i
}
