package codec

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/aretw0/roboflow/pkg/schema"
	"github.com/beevik/etree"
)

// scalarTag is the element wrapping each scalar item of a collection.
const scalarTag = "el"

func (c *Codec) encodeRecord(v reflect.Value, parent string) (*etree.Element, error) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return nil, &EncodeError{Path: parent, Reason: "nil record value"}
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, &EncodeError{Path: parent, Reason: "nil record value"}
	}
	rt, ok := c.reg.Lookup(v.Type())
	if !ok {
		return nil, &EncodeError{Path: parent, Reason: fmt.Sprintf("type %v is not registered", v.Type())}
	}
	path := pathOf(parent, rt.Name())

	el := etree.NewElement(rt.Name())
	for _, f := range rt.Fields() {
		fv := f.Value(v)
		switch f.Shape {
		case schema.ShapeAttribute:
			text, err := formatScalar(f.Scalar, fv, path, f.Name)
			if err != nil {
				return nil, err
			}
			el.CreateAttr(f.Wire, text)

		case schema.ShapeScalar:
			text, err := formatScalar(f.Scalar, fv, path, f.Name)
			if err != nil {
				return nil, err
			}
			setText(el.CreateElement(f.Name), text)

		case schema.ShapeRecord:
			inner, err := c.encodeRecord(fv, pathOf(path, f.Name))
			if err != nil {
				return nil, err
			}
			el.CreateElement(f.Name).AddChild(inner)

		case schema.ShapeCollection:
			wrapper := el.CreateElement(f.Name)
			for i := 0; i < fv.Len(); i++ {
				item := fv.Index(i)
				if f.IsRecord() {
					inner, err := c.encodeRecord(item, fmt.Sprintf("%s/%s[%d]", path, f.Name, i))
					if err != nil {
						return nil, err
					}
					wrapper.AddChild(inner)
					continue
				}
				text, err := formatScalar(f.Scalar, item, path, fmt.Sprintf("%s[%d]", f.Name, i))
				if err != nil {
					return nil, err
				}
				setText(wrapper.CreateElement(scalarTag), text)
			}
		}
	}
	return el, nil
}

func formatScalar(s schema.Scalar, v reflect.Value, path, field string) (string, error) {
	text, err := s.Format(v.Interface())
	if err != nil {
		return "", &EncodeError{Path: path + "." + field, Reason: err.Error()}
	}
	if reason := unencodable(text); reason != "" {
		return "", &EncodeError{Path: path + "." + field, Reason: reason}
	}
	return text, nil
}

// unencodable reports why text cannot be carried by an XML 1.0 document, or "".
func unencodable(text string) string {
	for i := 0; i < len(text); {
		r, width := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && width == 1 {
			return fmt.Sprintf("invalid UTF-8 at byte %d", i)
		}
		if !xmlChar(r) {
			return fmt.Sprintf("character %U at byte %d is not allowed in XML", r, i)
		}
		i += width
	}
	return ""
}

func xmlChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// setText leaves empty text out so empty scalars are written as self-closing elements.
func setText(el *etree.Element, text string) {
	if text != "" {
		el.SetText(text)
	}
}
