package scenario

// DefaultPriority is the priority of newly created states.
const DefaultPriority = 100

// CurrentVersion is written to the ver attribute of new projects.
const CurrentVersion = "v0.1"

// NewState returns a blank state with the given id.
func NewState(id int, name string) State {
	return State{
		Name:     name,
		StateID:  id,
		Priority: DefaultPriority,
	}
}

// NewStatement returns a blank statement comparing an empty literal with the document root.
func NewStatement() Statement {
	return Statement{
		ValueType1: Const,
		Value1:     "",
		ValueType2: XPath,
		Value2:     "/",
		Condition:  Equal,
	}
}

// NewProject returns an empty project at the current version.
func NewProject() *Project {
	return &Project{Version: CurrentVersion}
}
