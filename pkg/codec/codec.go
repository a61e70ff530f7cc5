package codec

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/aretw0/roboflow/pkg/schema"
	"github.com/beevik/etree"
)

// Codec encodes and decodes registered records as XML.
// A Codec holds no per-call state and is safe for concurrent use.
type Codec struct {
	reg    *schema.Registry
	indent int
}

// Option configures a Codec.
type Option func(*Codec)

// WithIndent pretty-prints encoded output using n spaces per level.
// Whitespace-only scalar text may not survive indented output.
func WithIndent(n int) Option {
	return func(c *Codec) {
		c.indent = n
	}
}

// New creates a codec over the records registered in reg.
func New(reg *schema.Registry, opts ...Option) *Codec {
	c := &Codec{reg: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the codec reads descriptors from.
func (c *Codec) Registry() *schema.Registry { return c.reg }

// Marshal encodes v, a registered record value or pointer to one.
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes v as an XML document without a declaration.
func (c *Codec) Encode(w io.Writer, v any) error {
	root, err := c.encodeRecord(reflect.ValueOf(v), "")
	if err != nil {
		return err
	}
	doc := etree.NewDocument()
	// Canonical escaping writes \r as &#xD; so it survives line-ending normalization.
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	doc.SetRoot(root)
	if c.indent > 0 {
		doc.Indent(c.indent)
	}
	_, err = doc.WriteTo(w)
	return err
}

// Unmarshal decodes data into v, which must be a non-nil pointer to a registered
// struct or to a registered family interface.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.Decode(bytes.NewReader(data), v)
}

// Decode reads one document from r into v. On error v is left untouched.
// Collections with no items, whether the wrapper is empty or missing, decode to
// nil slices, matching the zero value an encoded nil or empty slice came from.
func (c *Codec) Decode(r io.Reader, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", v)
	}
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}
	out, err := c.decodeElement(root, target.Elem().Type(), "")
	if err != nil {
		return err
	}
	target.Elem().Set(out)
	return nil
}
