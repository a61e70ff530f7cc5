package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/roboflow/pkg/domain"
)

var (
	// ErrIncomparableOperands is returned when an ordering comparison has an absent operand.
	ErrIncomparableOperands = errors.New("incomparable operands")
	// ErrInvalidQuery is returned when an XPath operand fails to compile or evaluate.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrStepLimit is returned when a run enters more states than the configured ceiling.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrMalformedSnapshot is returned when a hierarchy dump is not parseable XML.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// RunError is returned when a run terminates with OutcomeError.
type RunError struct {
	Kind    domain.ErrorKind
	StateID int
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run aborted in state %d (%s): %v", e.StateID, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// QueryError reports an XPath operand that failed to compile or evaluate.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("xpath %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() []error { return []error{ErrInvalidQuery, e.Err} }
