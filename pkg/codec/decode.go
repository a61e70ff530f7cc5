package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/roboflow/pkg/schema"
	"github.com/beevik/etree"
)

// decodeElement resolves el against expected and builds the record value.
// The returned value has the concrete record type, never the family interface.
func (c *Codec) decodeElement(el *etree.Element, expected reflect.Type, parent string) (reflect.Value, error) {
	rt, err := c.reg.Resolve(expected, el.Tag)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%s: %w", pathOf(parent, el.Tag), err)
	}
	path := pathOf(parent, el.Tag)

	values := make(map[string]any)
	for _, f := range rt.Fields() {
		if f.Shape != schema.ShapeAttribute {
			continue
		}
		attr := el.SelectAttr(f.Wire)
		if attr == nil {
			continue
		}
		v, err := parseScalar(f.Scalar, attr.Value, f.GoType)
		if err != nil {
			return reflect.Value{}, &ValueError{Path: path, Field: f.Name, Err: err}
		}
		values[f.Name] = v.Interface()
	}

	for _, child := range el.ChildElements() {
		f, ok := rt.Field(child.Tag)
		if !ok || f.Shape == schema.ShapeAttribute {
			continue
		}
		if _, seen := values[f.Name]; seen {
			continue
		}
		v, present, err := c.decodeField(child, f, path)
		if err != nil {
			return reflect.Value{}, err
		}
		if present {
			values[f.Name] = v.Interface()
		}
	}

	if err := schema.ValidateFields(rt.Required(), values, rt.RequiredNames()...); err != nil {
		return reflect.Value{}, fieldErr(path, err)
	}

	rec, err := rt.New(values)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	return reflect.ValueOf(rec), nil
}

func (c *Codec) decodeField(child *etree.Element, f schema.Field, path string) (reflect.Value, bool, error) {
	switch f.Shape {
	case schema.ShapeRecord:
		inner := child.ChildElements()
		if len(inner) == 0 {
			return reflect.Value{}, false, nil
		}
		v, err := c.decodeElement(inner[0], f.Elem, pathOf(path, f.Name))
		return v, err == nil, err

	case schema.ShapeCollection:
		items := child.ChildElements()
		if len(items) == 0 {
			return reflect.Value{}, false, nil
		}
		elemType := f.GoType.Elem()
		out := reflect.MakeSlice(f.GoType, 0, len(items))
		for i, item := range items {
			var (
				v   reflect.Value
				err error
			)
			if f.IsRecord() {
				v, err = c.decodeElement(item, f.Elem, fmt.Sprintf("%s/%s[%d]", path, f.Name, i))
				if err != nil {
					return reflect.Value{}, false, err
				}
			} else {
				v, err = parseScalar(f.Scalar, item.Text(), elemType)
				if err != nil {
					return reflect.Value{}, false, &ValueError{Path: path, Field: fmt.Sprintf("%s[%d]", f.Name, i), Err: err}
				}
			}
			if f.Collection == schema.Set && containsValue(out, v) {
				continue
			}
			out = reflect.Append(out, v)
		}
		return out, true, nil

	default:
		v, err := parseScalar(f.Scalar, child.Text(), f.GoType)
		if err != nil {
			return reflect.Value{}, false, &ValueError{Path: path, Field: f.Name, Err: err}
		}
		return v, true, nil
	}
}

// parseScalar parses text and converts the result to the declared Go type.
func parseScalar(s schema.Scalar, text string, goType reflect.Type) (reflect.Value, error) {
	parsed, err := s.Parse(text)
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(parsed)
	if !rv.Type().ConvertibleTo(goType) {
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %v", s.Name(), goType)
	}
	return rv.Convert(goType), nil
}

func containsValue(slice, v reflect.Value) bool {
	for i := 0; i < slice.Len(); i++ {
		if reflect.DeepEqual(slice.Index(i).Interface(), v.Interface()) {
			return true
		}
	}
	return false
}

// fieldErr maps the first schema validation failure onto a codec error.
func fieldErr(path string, err error) error {
	for _, e := range schema.ValidationErrors(err) {
		var ve *schema.ValidationError
		if errors.As(e, &ve) && ve.Reason == "required" {
			return &MissingFieldError{Path: path, Field: ve.Key}
		}
	}
	return fmt.Errorf("%s: %w: %v", path, ErrInvalidValue, err)
}

func pathOf(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
