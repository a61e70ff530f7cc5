package schema

import (
	"maps"
	"slices"
)

// Schema is a map of field names to their expected types.
// Example: {"name": String(), "state_id": Int(), "next_states": Slice(Int())}
type Schema map[string]Type

// Validate checks every field of schema against data, in key order so reports are stable.
// All failures are returned together as an *AggregateError.
func Validate(schema Schema, data map[string]any) error {
	return check(schema, data, slices.Sorted(maps.Keys(schema)))
}

// ValidateFields checks only the named fields. A name the schema does not define is an error.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	return check(schema, data, fields)
}

func check(schema Schema, data map[string]any, fields []string) error {
	var errs []error
	for _, name := range fields {
		typ, defined := schema[name]
		if !defined {
			errs = append(errs, &ValidationError{Key: name, Reason: "not defined in schema"})
			continue
		}
		value, ok := data[name]
		if !ok {
			errs = append(errs, &ValidationError{Key: name, Reason: "required"})
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error(), Value: value})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
