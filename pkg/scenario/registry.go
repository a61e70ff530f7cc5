package scenario

import (
	"io"

	"github.com/aretw0/roboflow/pkg/codec"
	"github.com/aretw0/roboflow/pkg/schema"
)

var registry = newRegistry()

func newRegistry() *schema.Registry {
	r := schema.NewRegistry()
	if err := r.RegisterEnum(Condition(""), schema.Enum("Condition", GreaterThan, LowerThan, Equal, NotEqual)); err != nil {
		panic(err)
	}
	if err := r.RegisterEnum(ValueType(""), schema.Enum("ValueType", XPath, Const)); err != nil {
		panic(err)
	}
	r.MustRegister(Point{})
	r.MustRegisterFamily((*Action)(nil),
		ClickCoordsAction{},
		ClickTextAction{},
		WaitAction{},
		WriteAction{},
		RunAppAction{},
	)
	r.MustRegister(Statement{}, State{}, Scenario{}, Project{})
	return r
}

// Registry returns the record table of the scenario model.
func Registry() *schema.Registry { return registry }

// Codec returns an XML codec for scenario model values.
func Codec(opts ...codec.Option) *codec.Codec {
	return codec.New(registry, opts...)
}

// Marshal encodes a model value (Project, Scenario, State, an Action, ...) as XML.
func Marshal(v any, opts ...codec.Option) ([]byte, error) {
	return Codec(opts...).Marshal(v)
}

// Unmarshal decodes XML into a pointer to a model value or to an Action.
func Unmarshal(data []byte, v any) error {
	return Codec().Unmarshal(data, v)
}

// DecodeProject reads a project document.
func DecodeProject(r io.Reader) (*Project, error) {
	var p Project
	if err := Codec().Decode(r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EncodeProject writes a project document.
func EncodeProject(w io.Writer, p *Project, opts ...codec.Option) error {
	return Codec(opts...).Encode(w, p)
}
