package domain

import (
	"errors"
	"strings"
)

var ErrValidation = errors.New("validation failed")

const (
	ReasonRequired = "field required"
)

// Failure kinds reported alongside each FieldError.
const (
	KindMissing    = "missing"
	KindTypeError  = "type_error"
	KindValueError = "value_error"
)

// FieldError describes why a single field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"message"`
	Kind   string `json:"type"`
}

// ValidationError lists every field that failed schema validation, in
// declaration order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a failure for field. ReasonRequired is reported as missing,
// anything else as a value error.
func (e *ValidationError) Add(field, reason string) {
	kind := KindValueError
	if reason == ReasonRequired {
		kind = KindMissing
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason, Kind: kind})
}

// AddType records that field is present but not of the expected kind.
func (e *ValidationError) AddType(field, kind string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: TypeReason(kind), Kind: KindTypeError})
}

// Has reports whether field has been recorded as failing.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns e when it holds at least one failure, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// TypeReason is the reason recorded when a field has the wrong primitive type.
func TypeReason(kind string) string {
	return "must be " + article(kind) + " " + kind
}

func article(kind string) string {
	if kind != "" && strings.ContainsRune("aeiou", rune(kind[0])) {
		return "an"
	}
	return "a"
}
