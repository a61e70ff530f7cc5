// Package schema describes typed records and validates field maps against them.
//
// Scalars (String, Int, Float, Bool, Enum) validate Go values and convert them to and
// from their textual wire form. A Registry derives a RecordType from a struct once, from
// its `record` struct tags, and rejects any field whose Go type has no wire shape:
//
//	type Point struct {
//	    X float64 `record:"x,attr"`
//	    Y float64 `record:"y,attr"`
//	}
//
//	reg := schema.NewRegistry()
//	reg.MustRegister(Point{})
//
// Closed polymorphic families are registered against an interface; the wire tag of each
// variant is its struct name:
//
//	reg.MustRegisterFamily((*Action)(nil), WaitAction{}, WriteAction{})
//	rt, err := reg.Resolve(schema.TypeOf[Action](), "WaitAction")
//
// RecordType.New builds a record from a field-name to value map, and RecordType.Required
// returns the Schema used to report missing fields:
//
//	if err := schema.Validate(rt.Required(), fields); err != nil {
//	    for _, e := range schema.ValidationErrors(err) { ... }
//	}
package schema
