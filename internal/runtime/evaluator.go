package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/xpath"

	"github.com/aretw0/roboflow/pkg/scenario"
)

// Operand is a resolved statement operand. Present is false when an XPath query matched nothing.
type Operand struct {
	Value   string
	Present bool
}

// Literal returns a present operand.
func Literal(v string) Operand { return Operand{Value: v, Present: true} }

// Absent is the operand of a query with no match.
var Absent = Operand{}

func (o Operand) String() string {
	if !o.Present {
		return "<absent>"
	}
	return strconv.Quote(o.Value)
}

// Evaluator resolves statement operands against snapshots.
// Compiled queries are cached; an Evaluator is safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*compiled
}

// compiled is a cached query. An xpath.Expr keeps iteration state in its query tree,
// so evaluations of one expression are serialized.
type compiled struct {
	mu   sync.Mutex
	expr *xpath.Expr
}

// NewEvaluator creates an evaluator with an empty query cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*compiled)}
}

// Compile returns the compiled form of query, compiling it at most once.
// The expression is shared with Resolve; evaluate it directly only from one goroutine.
func (e *Evaluator) Compile(query string) (*xpath.Expr, error) {
	c, err := e.lookup(query)
	if err != nil {
		return nil, err
	}
	return c.expr, nil
}

func (e *Evaluator) lookup(query string) (*compiled, error) {
	e.mu.RLock()
	c, ok := e.cache[query]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	expr, err := xpath.Compile(query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[query]; ok {
		return c, nil
	}
	c = &compiled{expr: expr}
	e.cache[query] = c
	return c, nil
}

// Resolve yields the operand described by vt and value.
// CONST operands are literal. XPATH operands yield the first matched node's string value,
// the stringified result of a scalar expression, or Absent.
func (e *Evaluator) Resolve(vt scenario.ValueType, value string, snap *Snapshot) (op Operand, err error) {
	switch vt {
	case scenario.Const:
		return Literal(value), nil
	case scenario.XPath:
	default:
		return Absent, fmt.Errorf("unknown value type %q", vt)
	}

	c, err := e.lookup(value)
	if err != nil {
		return Absent, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		// antchfx/xpath panics on some type errors at evaluation time.
		if r := recover(); r != nil {
			op, err = Absent, &QueryError{Query: value, Err: fmt.Errorf("%v", r)}
		}
	}()

	switch res := c.expr.Evaluate(snap.navigator()).(type) {
	case *xpath.NodeIterator:
		if res.MoveNext() {
			return Literal(res.Current().Value()), nil
		}
		return Absent, nil
	case float64:
		return Literal(strconv.FormatFloat(res, 'g', -1, 64)), nil
	case bool:
		return Literal(strconv.FormatBool(res)), nil
	case string:
		return Literal(res), nil
	default:
		return Absent, &QueryError{Query: value, Err: fmt.Errorf("unsupported result %T", res)}
	}
}

// Statement evaluates one statement.
func (e *Evaluator) Statement(st scenario.Statement, snap *Snapshot) (bool, error) {
	a, err := e.Resolve(st.ValueType1, st.Value1, snap)
	if err != nil {
		return false, err
	}
	b, err := e.Resolve(st.ValueType2, st.Value2, snap)
	if err != nil {
		return false, err
	}
	return Compare(a, b, st.Condition)
}

// Guard is the short-circuit conjunction of statements. An empty guard passes.
func (e *Evaluator) Guard(statements []scenario.Statement, snap *Snapshot) (bool, error) {
	for _, st := range statements {
		ok, err := e.Statement(st, snap)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Compare applies cond to two operands.
//
// When both values parse as numbers they compare numerically, otherwise lexically.
// An absent operand is never equal to anything, including another absent operand,
// and cannot be ordered.
func Compare(a, b Operand, cond scenario.Condition) (bool, error) {
	switch cond {
	case scenario.Equal:
		return a.Present && b.Present && order(a.Value, b.Value) == 0, nil
	case scenario.NotEqual:
		return !(a.Present && b.Present && order(a.Value, b.Value) == 0), nil
	case scenario.GreaterThan, scenario.LowerThan:
		if !a.Present || !b.Present {
			return false, fmt.Errorf("%w: %s %s %s", ErrIncomparableOperands, a, cond, b)
		}
		c := order(a.Value, b.Value)
		if cond == scenario.GreaterThan {
			return c > 0, nil
		}
		return c < 0, nil
	default:
		return false, fmt.Errorf("unknown condition %q", cond)
	}
}

func order(a, b string) int {
	x, okA := number(a)
	y, okB := number(b)
	if okA && okB {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
