package dsl

import "github.com/aretw0/roboflow/pkg/scenario"

// Operand is one side of a guard statement.
type Operand struct {
	kind  scenario.ValueType
	value string
}

// XPath is an operand evaluated against the UI snapshot.
func XPath(query string) Operand { return Operand{kind: scenario.XPath, value: query} }

// Const is a literal operand.
func Const(value string) Operand { return Operand{kind: scenario.Const, value: value} }

func (o Operand) compare(cond scenario.Condition, other Operand) scenario.Statement {
	return scenario.Statement{
		ValueType1: o.kind,
		Value1:     o.value,
		ValueType2: other.kind,
		Value2:     other.value,
		Condition:  cond,
	}
}

// Eq builds an EQUAL statement.
func (o Operand) Eq(other Operand) scenario.Statement { return o.compare(scenario.Equal, other) }

// Ne builds a NOT_EQUAL statement.
func (o Operand) Ne(other Operand) scenario.Statement { return o.compare(scenario.NotEqual, other) }

// Gt builds a GREATER_THAN statement.
func (o Operand) Gt(other Operand) scenario.Statement { return o.compare(scenario.GreaterThan, other) }

// Lt builds a LOWER_THAN statement.
func (o Operand) Lt(other Operand) scenario.Statement { return o.compare(scenario.LowerThan, other) }
