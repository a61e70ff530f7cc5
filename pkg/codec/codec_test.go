package codec

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/roboflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level string

type pos struct {
	X float64 `record:"x,attr"`
	Y float64 `record:"y,attr"`
}

type step interface{ isStep() }

type tap struct {
	At       pos `record:"at"`
	Duration int `record:"duration_ms"`
}

func (tap) isStep() {}

type say struct {
	Text string `record:"text"`
}

func (say) isStep() {}

type plan struct {
	Version string  `record:"version,attr=ver"`
	Name    string  `record:"name"`
	Level   level   `record:"level"`
	Steps   []step  `record:"steps,seq"`
	Tags    []int   `record:"tags,set"`
	First   step    `record:"first"`
	Weight  float64 `record:"weight"`
}

func testCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.RegisterEnum(level(""), schema.Enum[level]("Level", "LOW", "HIGH")))
	require.NoError(t, reg.Register(pos{}))
	require.NoError(t, reg.RegisterFamily((*step)(nil), tap{}, say{}))
	require.NoError(t, reg.Register(plan{}))
	return New(reg, opts...)
}

func samplePlan() plan {
	return plan{
		Version: "v0.1",
		Name:    "login & <check>",
		Level:   "HIGH",
		Steps:   []step{say{Text: "hi"}, tap{At: pos{X: 10.5, Y: 0.1}, Duration: 250}},
		Tags:    []int{3, 1},
		First:   say{Text: "first"},
		Weight:  1.0 / 3.0,
	}
}

func TestMarshal_Layout(t *testing.T) {
	c := testCodec(t)

	data, err := c.Marshal(plan{
		Version: "v0.1",
		Name:    "p",
		Level:   "LOW",
		Steps:   []step{say{Text: "hi"}},
		Tags:    []int{7},
		First:   tap{At: pos{X: 1, Y: 2}, Duration: 5},
		Weight:  0.5,
	})
	require.NoError(t, err)

	want := `<plan ver="v0.1"><name>p</name><level>LOW</level>` +
		`<steps><say><text>hi</text></say></steps>` +
		`<tags><el>7</el></tags>` +
		`<first><tap><at><pos x="1" y="2"/></at><duration_ms>5</duration_ms></tap></first>` +
		`<weight>0.5</weight></plan>`
	assert.Equal(t, want, string(data))
}

func TestRoundTrip(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name    string
		mutate  func(*plan)
		wantErr bool
	}{
		{name: "sample", mutate: func(*plan) {}},
		{name: "carriage return in text", mutate: func(p *plan) { p.Name = "line1\r\nline2" }},
		{name: "carriage return in attribute", mutate: func(p *plan) { p.Version = "a\rb\tc\nd" }},
		{name: "control character", mutate: func(p *plan) { p.Name = "ctl\x01x" }, wantErr: true},
		{name: "invalid utf-8", mutate: func(p *plan) { p.Name = "bad\xffutf" }, wantErr: true},
		{name: "invalid utf-8 in nested record", mutate: func(p *plan) { p.First = say{Text: "\xfe"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := samplePlan()
			tt.mutate(&in)

			data, err := c.Marshal(in)
			if tt.wantErr {
				var ee *EncodeError
				require.ErrorAs(t, err, &ee)
				assert.ErrorIs(t, err, ErrEncode)
				return
			}
			require.NoError(t, err)

			var out plan
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)

			again, err := c.Marshal(out)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
		})
	}
}

func TestRoundTrip_Indented(t *testing.T) {
	c := testCodec(t, WithIndent(2))
	in := samplePlan()

	data, err := c.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  <name>")

	var out plan
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshal_PolymorphicTarget(t *testing.T) {
	c := testCodec(t)

	for _, in := range []step{say{Text: "x"}, tap{At: pos{X: 3, Y: 4}, Duration: 1}} {
		data, err := c.Marshal(in)
		require.NoError(t, err)

		var out step
		require.NoError(t, c.Unmarshal(data, &out))
		assert.IsType(t, in, out)
		assert.Equal(t, in, out)
	}
}

func TestUnmarshal_SetDeduplicates(t *testing.T) {
	c := testCodec(t)
	doc := `<plan ver="1"><name>n</name><level>LOW</level><first><say><text>a</text></say></first>` +
		`<weight>1</weight><tags><el>2</el><el>1</el><el>2</el></tags></plan>`

	var out plan
	require.NoError(t, c.Unmarshal([]byte(doc), &out))
	assert.Equal(t, []int{2, 1}, out.Tags)
	assert.Nil(t, out.Steps)
}

func TestUnmarshal_EmptyCollectionsAreNil(t *testing.T) {
	c := testCodec(t)
	head := `<plan ver="1"><name>n</name><level>LOW</level><first><say><text>a</text></say></first><weight>1</weight>`

	for name, doc := range map[string]string{
		"empty wrappers":   head + `<steps/><tags></tags></plan>`,
		"missing wrappers": head + `</plan>`,
	} {
		t.Run(name, func(t *testing.T) {
			var out plan
			require.NoError(t, c.Unmarshal([]byte(doc), &out))
			assert.Nil(t, out.Steps)
			assert.Nil(t, out.Tags)
		})
	}

	data, err := c.Marshal(plan{Level: "LOW", First: say{}, Steps: []step{}, Tags: []int{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "<steps/><tags/>")

	var out plan
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Nil(t, out.Steps, "empty slices come back as nil")
	assert.Nil(t, out.Tags)
}

func TestUnmarshal_IgnoresUnknownChildren(t *testing.T) {
	c := testCodec(t)
	doc := `<plan ver="1" extra="x"><future><a/></future><name>n</name><level>LOW</level>` +
		`<first><say><text>a</text><color>red</color></say></first><weight>2</weight></plan>`

	var out plan
	require.NoError(t, c.Unmarshal([]byte(doc), &out))
	assert.Equal(t, "n", out.Name)
	assert.Equal(t, say{Text: "a"}, out.First)
}

func TestUnmarshal_Errors(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not xml", `this is not xml`, ErrMalformedDocument},
		{"unterminated", `<plan ver="1"`, ErrMalformedDocument},
		{"empty", ``, ErrMalformedDocument},
		{"wrong root", `<project/>`, ErrUnresolvedTag},
		{"unknown variant", `<plan ver="1"><name>n</name><level>LOW</level><first><jump/></first><weight>1</weight></plan>`, ErrUnresolvedTag},
		{"missing attribute", `<plan><name>n</name><level>LOW</level><first><say><text>a</text></say></first><weight>1</weight></plan>`, ErrMissingField},
		{"missing scalar", `<plan ver="1"><level>LOW</level><first><say><text>a</text></say></first><weight>1</weight></plan>`, ErrMissingField},
		{"missing record", `<plan ver="1"><name>n</name><level>LOW</level><first/><weight>1</weight></plan>`, ErrMissingField},
		{"missing nested", `<plan ver="1"><name>n</name><level>LOW</level><first><say/></first><weight>1</weight></plan>`, ErrMissingField},
		{"bad enum", `<plan ver="1"><name>n</name><level>MID</level><first><say><text>a</text></say></first><weight>1</weight></plan>`, ErrInvalidValue},
		{"bad number", `<plan ver="1"><name>n</name><level>LOW</level><first><say><text>a</text></say></first><weight>heavy</weight></plan>`, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := plan{Name: "untouched"}
			err := c.Unmarshal([]byte(tt.doc), &out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, "untouched", out.Name)
		})
	}
}

func TestUnmarshal_MissingFieldNamesField(t *testing.T) {
	c := testCodec(t)
	doc := `<plan ver="1"><name>n</name><level>LOW</level><first><say><text>a</text></say></first></plan>`

	var out plan
	err := c.Unmarshal([]byte(doc), &out)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "weight", missing.Field)
	assert.Equal(t, "plan", missing.Path)
}

func TestUnmarshal_RequiresPointer(t *testing.T) {
	c := testCodec(t)
	assert.Error(t, c.Unmarshal([]byte(`<plan/>`), plan{}))
}

func TestMarshal_Errors(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name string
		in   any
	}{
		{"enum outside set", plan{Level: "MID", First: say{}}},
		{"nil polymorphic field", plan{Level: "LOW"}},
		{"nil item", plan{Level: "LOW", First: say{}, Steps: []step{nil}}},
		{"unregistered", struct{ A int }{1}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Marshal(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEncode)
		})
	}
}

func TestCodec_ConcurrentUse(t *testing.T) {
	c := testCodec(t)
	in := samplePlan()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Marshal(in)
			if err != nil {
				errs <- err
				return
			}
			var out plan
			if err := c.Decode(strings.NewReader(string(data)), &out); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
