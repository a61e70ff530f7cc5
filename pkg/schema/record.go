package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag read when deriving record fields.
//
// Grammar: `record:"name[,attr[=wire]][,seq|,set]"`. A tag of "-" skips the field.
const TagName = "record"

// Shape is the wire shape of a record field.
type Shape int

const (
	// ShapeScalar is a child element holding the value as text.
	ShapeScalar Shape = iota
	// ShapeAttribute is an XML attribute on the owning element.
	ShapeAttribute
	// ShapeCollection is a wrapper element with one child per item.
	ShapeCollection
	// ShapeRecord is a wrapper element holding exactly one concrete record element.
	ShapeRecord
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeAttribute:
		return "attribute"
	case ShapeCollection:
		return "collection"
	case ShapeRecord:
		return "record"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// CollectionKind distinguishes ordered from unordered collections.
type CollectionKind int

const (
	NotCollection CollectionKind = iota
	Sequence
	Set
)

func (k CollectionKind) String() string {
	switch k {
	case Sequence:
		return "seq"
	case Set:
		return "set"
	default:
		return ""
	}
}

// Field describes how one struct field maps onto XML.
type Field struct {
	Name       string         // Logical name, also the child element tag
	Wire       string         // Attribute name on the wire (attributes only)
	Shape      Shape          // Wire shape
	Collection CollectionKind // Container kind (collections only)
	Scalar     Scalar         // Text codec for scalars, attributes and scalar collections
	Elem       reflect.Type   // Record type (struct or family interface) for records and record collections
	GoType     reflect.Type   // Declared Go type of the struct field

	index []int
}

// IsRecord reports whether the field (or its items) are records.
func (f Field) IsRecord() bool { return f.Elem != nil }

// Value returns the field's value within rec, which must be the owning struct.
func (f Field) Value(rec reflect.Value) reflect.Value {
	return reflect.Indirect(rec).FieldByIndex(f.index)
}

// Type returns the validation type for the field.
func (f Field) Type() Type {
	var elem Type = f.Scalar
	if f.Elem != nil {
		elem = &recordRef{name: f.Elem.Name(), goType: f.Elem}
	}
	if f.Shape == ShapeCollection {
		return Slice(elem)
	}
	return elem
}

// Required reports whether decode must find the field. Collections may be absent.
func (f Field) Required() bool { return f.Shape != ShapeCollection }

// RecordType is the derived descriptor table of a registered struct.
type RecordType struct {
	name   string
	goType reflect.Type
	fields []Field
	byName map[string]int
}

// Name returns the structural name, which is also the wire tag.
func (rt *RecordType) Name() string { return rt.name }

// GoType returns the struct type.
func (rt *RecordType) GoType() reflect.Type { return rt.goType }

// Fields returns the field descriptors in declaration order.
func (rt *RecordType) Fields() []Field { return slices.Clone(rt.fields) }

// Field returns the descriptor for name.
func (rt *RecordType) Field(name string) (Field, bool) {
	i, ok := rt.byName[name]
	if !ok {
		return Field{}, false
	}
	return rt.fields[i], true
}

// Required returns a Schema of the fields decode must find.
func (rt *RecordType) Required() Schema {
	s := make(Schema)
	for _, f := range rt.fields {
		if f.Required() {
			s[f.Name] = f.Type()
		}
	}
	return s
}

// RequiredNames lists the required field names in declaration order.
func (rt *RecordType) RequiredNames() []string {
	var names []string
	for _, f := range rt.fields {
		if f.Required() {
			names = append(names, f.Name)
		}
	}
	return names
}

// New constructs a value of the record from a field-name to value mapping.
// Keys that name no field are rejected. The returned value is the struct itself, not a pointer.
func (rt *RecordType) New(values map[string]any) (any, error) {
	out := reflect.New(rt.goType)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     TagName,
		ErrorUnused: true,
		Result:      out.Interface(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(values); err != nil {
		return nil, fmt.Errorf("construct %s: %w", rt.name, err)
	}
	return out.Elem().Interface(), nil
}

// Family is a closed set of record variants sharing an interface.
type Family struct {
	name     string
	base     reflect.Type
	variants map[string]*RecordType
	order    []string
}

// Name returns the interface name.
func (f *Family) Name() string { return f.name }

// Variants returns the variant record types in registration order.
func (f *Family) Variants() []*RecordType {
	out := make([]*RecordType, 0, len(f.order))
	for _, tag := range f.order {
		out = append(out, f.variants[tag])
	}
	return out
}

// Registry holds record types, polymorphic families and enum scalars.
// It is safe for concurrent use; registration is expected to happen once at startup.
type Registry struct {
	mu       sync.RWMutex
	records  map[reflect.Type]*RecordType
	names    map[string]*RecordType
	families map[reflect.Type]*Family
	scalars  map[reflect.Type]Scalar
	order    []*RecordType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records:  make(map[reflect.Type]*RecordType),
		names:    make(map[string]*RecordType),
		families: make(map[reflect.Type]*Family),
		scalars:  make(map[reflect.Type]Scalar),
	}
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterEnum binds a string-kinded Go type to an enum scalar.
// sample is any value of the Go type, typically its zero value.
func (r *Registry) RegisterEnum(sample any, enum *EnumType) error {
	t := reflect.TypeOf(sample)
	if t == nil || t.Kind() != reflect.String {
		return fmt.Errorf("enum %s: sample must be string-kinded, got %T", enum.Name(), sample)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scalars[t] = enum
	return nil
}

// Register derives and stores the record type of each sample struct.
// Field types are checked here; every nested record, family or enum must already be registered.
func (r *Registry) Register(samples ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		if _, err := r.registerLocked(s); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(samples ...any) {
	if err := r.Register(samples...); err != nil {
		panic(err)
	}
}

// RegisterFamily registers an interface as a closed polymorphic family.
// base is a nil pointer to the interface, e.g. (*Action)(nil). Variants not yet registered are registered.
func (r *Registry) RegisterFamily(base any, variants ...any) error {
	bt := reflect.TypeOf(base)
	if bt == nil || bt.Kind() != reflect.Pointer || bt.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("family base must be a pointer to an interface, got %T", base)
	}
	iface := bt.Elem()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.families[iface]; exists {
		return fmt.Errorf("family %s already registered", iface.Name())
	}
	fam := &Family{name: iface.Name(), base: iface, variants: make(map[string]*RecordType)}
	for _, v := range variants {
		rt, err := r.registerLocked(v)
		if err != nil {
			return err
		}
		if !rt.goType.Implements(iface) {
			return fmt.Errorf("%s does not implement %s", rt.name, iface.Name())
		}
		if _, dup := fam.variants[rt.name]; dup {
			return fmt.Errorf("family %s: duplicate variant %s", fam.name, rt.name)
		}
		fam.variants[rt.name] = rt
		fam.order = append(fam.order, rt.name)
	}
	r.families[iface] = fam
	return nil
}

// MustRegisterFamily is like RegisterFamily but panics on error.
func (r *Registry) MustRegisterFamily(base any, variants ...any) {
	if err := r.RegisterFamily(base, variants...); err != nil {
		panic(err)
	}
}

// Lookup returns the record type registered for a struct type.
func (r *Registry) Lookup(t reflect.Type) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.records[t]
	return rt, ok
}

// Record returns the record type with the given structural name.
func (r *Registry) Record(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.names[name]
	return rt, ok
}

// Family returns the family registered for an interface type.
func (r *Registry) Family(t reflect.Type) (*Family, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.families[t]
	return f, ok
}

// Records returns every registered record type in registration order.
func (r *Registry) Records() []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Families returns every registered family sorted by name.
func (r *Registry) Families() []*Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Family, 0, len(r.families))
	for _, f := range r.families {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *Family) int { return strings.Compare(a.name, b.name) })
	return out
}

// Resolve maps a wire tag to the record type to decode when expected is wanted.
// For a struct, the tag must equal its name; for a family interface, the tag selects the variant.
func (r *Registry) Resolve(expected reflect.Type, tag string) (*RecordType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fam, ok := r.families[expected]; ok {
		if rt, ok := fam.variants[tag]; ok {
			return rt, nil
		}
		return nil, &TagError{Expected: fam.name, Tag: tag}
	}
	rt, ok := r.records[expected]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRecord, expected)
	}
	if rt.name != tag {
		return nil, &TagError{Expected: rt.name, Tag: tag}
	}
	return rt, nil
}

// RecordOf returns the record type of a concrete value, unwrapping pointers.
func (r *Registry) RecordOf(v any) (*RecordType, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnknownRecord)
	}
	rt, ok := r.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRecord, t)
	}
	return rt, nil
}

func (r *Registry) registerLocked(sample any) (*RecordType, error) {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record sample must be a struct, got %T", sample)
	}
	if rt, ok := r.records[t]; ok {
		return rt, nil
	}
	if prev, ok := r.names[t.Name()]; ok {
		return nil, fmt.Errorf("record name %q already used by %v", t.Name(), prev.goType)
	}

	rt := &RecordType{name: t.Name(), goType: t, byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get(TagName)
		if tag == "-" {
			continue
		}
		f, err := r.deriveField(rt.name, sf, tag)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(f.Name, "_") {
			continue
		}
		if _, dup := rt.byName[f.Name]; dup {
			return nil, &FieldError{Record: rt.name, Field: sf.Name, Reason: fmt.Sprintf("duplicate field name %q", f.Name)}
		}
		rt.byName[f.Name] = len(rt.fields)
		rt.fields = append(rt.fields, f)
	}

	r.records[t] = rt
	r.names[rt.name] = rt
	r.order = append(r.order, rt)
	return rt, nil
}

func (r *Registry) deriveField(record string, sf reflect.StructField, tag string) (Field, error) {
	parts := strings.Split(tag, ",")
	f := Field{Name: strings.TrimSpace(parts[0]), GoType: sf.Type, index: sf.Index}
	if f.Name == "" {
		f.Name = sf.Name
	}
	f.Wire = f.Name

	attr := false
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "attr":
			attr = true
		case strings.HasPrefix(opt, "attr="):
			attr = true
			f.Wire = strings.TrimPrefix(opt, "attr=")
		case opt == "seq":
			f.Collection = Sequence
		case opt == "set":
			f.Collection = Set
		case opt == "":
		default:
			return Field{}, &FieldError{Record: record, Field: sf.Name, Reason: fmt.Sprintf("unknown tag option %q", opt)}
		}
	}

	reject := func(reason string) (Field, error) {
		return Field{}, &FieldError{Record: record, Field: sf.Name, Reason: reason}
	}

	if sf.Type.Kind() == reflect.Slice {
		if attr {
			return reject("collections cannot be attributes")
		}
		if f.Collection == NotCollection {
			f.Collection = Sequence
		}
		f.Shape = ShapeCollection
		scalar, elem, ok := r.elementLocked(sf.Type.Elem())
		if !ok {
			return reject(fmt.Sprintf("unsupported collection element %v", sf.Type.Elem()))
		}
		f.Scalar, f.Elem = scalar, elem
		return f, nil
	}

	if f.Collection != NotCollection {
		return reject("seq/set requires a slice")
	}
	scalar, elem, ok := r.elementLocked(sf.Type)
	if !ok {
		return reject(fmt.Sprintf("unsupported type %v", sf.Type))
	}
	switch {
	case attr && scalar == nil:
		return reject("attributes must be scalar")
	case attr:
		f.Shape = ShapeAttribute
	case elem != nil:
		f.Shape = ShapeRecord
	default:
		f.Shape = ShapeScalar
	}
	f.Scalar, f.Elem = scalar, elem
	return f, nil
}

// elementLocked classifies a non-slice Go type as a scalar or a record.
func (r *Registry) elementLocked(t reflect.Type) (Scalar, reflect.Type, bool) {
	if s, ok := r.scalars[t]; ok {
		return s, nil, true
	}
	switch t.Kind() {
	case reflect.String:
		return String(), nil, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(), nil, true
	case reflect.Float32, reflect.Float64:
		return Float(), nil, true
	case reflect.Bool:
		return Bool(), nil, true
	case reflect.Struct:
		if _, ok := r.records[t]; ok {
			return nil, t, true
		}
	case reflect.Interface:
		if _, ok := r.families[t]; ok {
			return nil, t, true
		}
	}
	return nil, nil, false
}
