package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// Scalar is a Type with a textual wire form.
// Format followed by Parse must yield an equal value, and Parse followed by
// Format must yield the same text for any text Format produced.
type Scalar interface {
	Type
	// Parse converts wire text into a Go value of the scalar's natural type.
	Parse(text string) (any, error)
	// Format converts a Go value into wire text.
	Format(value any) (string, error)
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if value == nil || reflect.TypeOf(value).Kind() != reflect.String {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) Parse(text string) (any, error) { return text, nil }

func (t *StringType) Format(value any) (string, error) {
	if err := t.Validate(value); err != nil {
		return "", err
	}
	return reflect.ValueOf(value).String(), nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// Accept floats that are whole numbers (from JSON unmarshaling)
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		if value != nil && isIntKind(reflect.TypeOf(value).Kind()) {
			return nil
		}
		return fmt.Errorf("expected int, got %T", value)
	}
}

func (t *IntType) Parse(text string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid int %q: %w", text, err)
	}
	return n, nil
}

func (t *IntType) Format(value any) (string, error) {
	if value == nil || !isIntKind(reflect.TypeOf(value).Kind()) {
		return "", fmt.Errorf("expected int, got %T", value)
	}
	return strconv.FormatInt(reflect.ValueOf(value).Int(), 10), nil
}

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

func (t *FloatType) Parse(text string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float %q: %w", text, err)
	}
	return f, nil
}

// Format uses the shortest representation that parses back to the same value.
func (t *FloatType) Format(value any) (string, error) {
	switch v := value.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		if value != nil && isIntKind(reflect.TypeOf(value).Kind()) {
			return strconv.FormatInt(reflect.ValueOf(value).Int(), 10), nil
		}
		return "", fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	_, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) Parse(text string) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("invalid bool %q: %w", text, err)
	}
	return b, nil
}

func (t *BoolType) Format(value any) (string, error) {
	b, ok := value.(bool)
	if !ok {
		return "", fmt.Errorf("expected bool, got %T", value)
	}
	return strconv.FormatBool(b), nil
}

// EnumType validates string-kinded values against a closed set of members.
type EnumType struct {
	name    string
	members []string
}

func (t *EnumType) Name() string { return t.name }

// Members returns the allowed wire values in declaration order.
func (t *EnumType) Members() []string { return slices.Clone(t.members) }

func (t *EnumType) Validate(value any) error {
	if value == nil || reflect.TypeOf(value).Kind() != reflect.String {
		return fmt.Errorf("expected %s, got %T", t.name, value)
	}
	s := reflect.ValueOf(value).String()
	if !slices.Contains(t.members, s) {
		return fmt.Errorf("%q is not a member of %s %v", s, t.name, t.members)
	}
	return nil
}

func (t *EnumType) Parse(text string) (any, error) {
	text = strings.TrimSpace(text)
	if !slices.Contains(t.members, text) {
		return nil, fmt.Errorf("%q is not a member of %s %v", text, t.name, t.members)
	}
	return text, nil
}

func (t *EnumType) Format(value any) (string, error) {
	if err := t.Validate(value); err != nil {
		return "", err
	}
	return reflect.ValueOf(value).String(), nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	// Validate each element
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// recordRef validates that a value is assignable to a record Go type
// (a registered struct or a registered family interface).
type recordRef struct {
	name   string
	goType reflect.Type
}

func (t *recordRef) Name() string { return t.name }

func (t *recordRef) Validate(value any) error {
	if value == nil {
		return fmt.Errorf("expected %s, got nil", t.name)
	}
	if !reflect.TypeOf(value).AssignableTo(t.goType) {
		return fmt.Errorf("expected %s, got %T", t.name, value)
	}
	return nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Scalar { return &StringType{} }

// Int creates an integer type validator.
func Int() Scalar { return &IntType{} }

// Float creates a float type validator.
func Float() Scalar { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Scalar { return &BoolType{} }

// Enum creates a closed-set scalar for a string-kinded Go type.
func Enum[T ~string](name string, members ...T) *EnumType {
	values := make([]string, len(members))
	for i, m := range members {
		values[i] = string(m)
	}
	return &EnumType{name: name, members: values}
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
