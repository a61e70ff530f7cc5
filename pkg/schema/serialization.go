package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON serializes the schema as a map of field names to type strings.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	raw := make(map[string]string, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		raw[key] = typ.Name()
	}

	return json.Marshal(raw)
}

type fieldJSON struct {
	Name       string   `json:"name"`
	Wire       string   `json:"wire,omitempty"`
	Shape      string   `json:"shape"`
	Collection string   `json:"collection,omitempty"`
	Type       string   `json:"type"`
	Members    []string `json:"members,omitempty"`
}

// MarshalJSON describes a field for introspection.
func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		Name:       f.Name,
		Shape:      f.Shape.String(),
		Collection: f.Collection.String(),
		Type:       f.Type().Name(),
	}
	if f.Shape == ShapeAttribute && f.Wire != f.Name {
		out.Wire = f.Wire
	}
	if e, ok := f.Scalar.(*EnumType); ok {
		out.Members = e.Members()
	}
	return json.Marshal(out)
}

// MarshalJSON describes the record and its fields in declaration order.
func (rt *RecordType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}{Name: rt.name, Fields: rt.fields})
}

// MarshalJSON describes the family and the wire tags of its variants.
func (f *Family) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string   `json:"name"`
		Variants []string `json:"variants"`
	}{Name: f.name, Variants: f.order})
}
