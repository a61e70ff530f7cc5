package scenario

// Condition is the comparison applied by a Statement.
type Condition string

const (
	GreaterThan Condition = "GREATER_THAN"
	LowerThan   Condition = "LOWER_THAN"
	Equal       Condition = "EQUAL"
	NotEqual    Condition = "NOT_EQUAL"
)

// ValueType tells how a Statement operand is resolved.
type ValueType string

const (
	// XPath operands are queries evaluated against the UI snapshot.
	XPath ValueType = "XPATH"
	// Const operands are literal strings.
	Const ValueType = "CONST"
)

// Point is a layout or screen coordinate.
type Point struct {
	X float64 `record:"x,attr"`
	Y float64 `record:"y,attr"`
}

// Action is a primitive command sent to the device when a state becomes current.
// The set of actions is closed; see the variants below.
type Action interface {
	isAction()
}

// ClickCoordsAction taps (or long-presses, when DurationMS > 0) a screen coordinate.
type ClickCoordsAction struct {
	Coords     Point `record:"coords"`
	DurationMS int   `record:"duration_ms"`
}

// ClickTextAction taps the first UI element whose text matches.
type ClickTextAction struct {
	Text       string `record:"text"`
	DurationMS int    `record:"duration_ms"`
}

// WaitAction pauses the run.
type WaitAction struct {
	DurationMS int `record:"duration_ms"`
}

// WriteAction types text into the focused element.
type WriteAction struct {
	Text string `record:"text"`
}

// RunAppAction launches an installed application by package name.
type RunAppAction struct {
	PackageName string `record:"package_name"`
}

func (ClickCoordsAction) isAction() {}
func (ClickTextAction) isAction()   {}
func (WaitAction) isAction()        {}
func (WriteAction) isAction()       {}
func (RunAppAction) isAction()      {}

// Statement is a binary predicate over two operands.
type Statement struct {
	ValueType1 ValueType `record:"value_type_1"`
	Value1     string    `record:"value1"`
	ValueType2 ValueType `record:"value_type_2"`
	Value2     string    `record:"value2"`
	Condition  Condition `record:"condition"`
}

// State is a node of the scenario graph.
//
// Statements guard entry into the state when it is a transition candidate.
// Actions run when the state becomes current. NextStates holds candidate successor ids.
// Position is layout-only.
type State struct {
	Name        string      `record:"name"`
	StateID     int         `record:"state_id"`
	Description string      `record:"description"`
	Statements  []Statement `record:"statements,set"`
	Actions     []Action    `record:"actions,seq"`
	NextStates  []int       `record:"next_states,set"`
	Priority    int         `record:"priority"`
	Position    Point       `record:"position"`
}

// Scenario is a state graph with a designated initial state.
type Scenario struct {
	Name           string  `record:"name"`
	InitialStateID int     `record:"initial_state_id"`
	States         []State `record:"states,seq"`
}

// State returns the state with the given id.
func (s *Scenario) State(id int) (*State, bool) {
	for i := range s.States {
		if s.States[i].StateID == id {
			return &s.States[i], true
		}
	}
	return nil, false
}

// Project is the root persisted entity. One project per file.
type Project struct {
	Version   string     `record:"version,attr=ver"`
	Scenarios []Scenario `record:"scenarios,seq"`
}

// Scenario returns the scenario with the given name.
func (p *Project) Scenario(name string) (*Scenario, bool) {
	for i := range p.Scenarios {
		if p.Scenarios[i].Name == name {
			return &p.Scenarios[i], true
		}
	}
	return nil, false
}
