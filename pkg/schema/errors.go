package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedTag is returned when a wire tag matches no registered variant of the expected type.
	ErrUnresolvedTag = errors.New("unresolved polymorphic tag")
	// ErrUnsupportedField is returned at registration time for a field whose Go type has no wire shape.
	ErrUnsupportedField = errors.New("unsupported field type")
	// ErrUnknownRecord is returned when a Go type was never registered.
	ErrUnknownRecord = errors.New("unknown record type")
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// TagError reports a wire tag that could not be mapped to a record type.
type TagError struct {
	Expected string // Name of the expected record or family
	Tag      string // Tag found on the wire
}

func (e *TagError) Error() string {
	return fmt.Sprintf("tag <%s> is not a known %s", e.Tag, e.Expected)
}

func (e *TagError) Unwrap() error { return ErrUnresolvedTag }

// FieldError reports a struct field rejected while deriving a record type.
type FieldError struct {
	Record string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Record, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrUnsupportedField }
