package codec

import (
	"errors"
	"fmt"

	"github.com/aretw0/roboflow/pkg/schema"
)

var (
	// ErrMalformedDocument is returned when the input is not well-formed XML or has no root element.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrUnresolvedTag is returned when an element tag selects no known record variant.
	ErrUnresolvedTag = schema.ErrUnresolvedTag
	// ErrMissingField is returned when a required attribute, scalar child or nested record is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidValue is returned when element text or an attribute cannot be parsed as its scalar type.
	ErrInvalidValue = errors.New("invalid value")
	// ErrEncode is returned when a value cannot be written to XML.
	ErrEncode = errors.New("encode error")
)

// MissingFieldError names the absent field and the path of the element that lacked it.
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Path, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// ValueError reports wire text that does not parse as the field's scalar type.
type ValueError struct {
	Path  string
	Field string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", e.Path, e.Field, e.Err)
}

func (e *ValueError) Unwrap() []error { return []error{ErrInvalidValue, e.Err} }

// EncodeError reports a field value that could not be stringified.
type EncodeError struct {
	Path   string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s", e.Path, e.Reason)
}

func (e *EncodeError) Unwrap() error { return ErrEncode }
