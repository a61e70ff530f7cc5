package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of a scenario run.
type Outcome string

const (
	// OutcomeSuccess means a state with no successors was reached.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means no candidate successor's guard passed.
	OutcomeFailed Outcome = "failed"
	// OutcomeError means the run was aborted; see Report.ErrorKind.
	OutcomeError Outcome = "error"
)

// ErrorKind classifies an aborted run.
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindDevice       ErrorKind = "device"
	ErrorKindIncomparable ErrorKind = "incomparable_operands"
	ErrorKindInvalidQuery ErrorKind = "invalid_query"
	ErrorKindStepLimit    ErrorKind = "step_limit"
	ErrorKindCanceled     ErrorKind = "canceled"
)

// Report is the record of one scenario run.
type Report struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	DeviceID   string    `json:"device_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Trace      []int     `json:"trace"`
	Steps      int       `json:"steps"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewReport starts a report for the named scenario with a fresh run id.
func NewReport(scenario string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Scenario:  scenario,
		Trace:     []int{},
		StartedAt: time.Now(),
	}
}

// Visit appends a state id to the trace.
func (r *Report) Visit(stateID int) {
	r.Trace = append(r.Trace, stateID)
	r.Steps = len(r.Trace)
}

// Finish records the terminal outcome.
func (r *Report) Finish(outcome Outcome) {
	r.Outcome = outcome
	r.FinishedAt = time.Now()
}

// Fail records an aborted run.
func (r *Report) Fail(kind ErrorKind, err error) {
	r.ErrorKind = kind
	if err != nil {
		r.Error = err.Error()
	}
	r.Finish(OutcomeError)
}

// Duration is the wall-clock length of a finished run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Done reports whether the run reached a terminal outcome.
func (r *Report) Done() bool { return r.Outcome != "" }
