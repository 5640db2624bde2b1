package harness

import (
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq int    `json:"seq"`
	Op  string `json:"op"`

	// Outcome is OutcomeOK or the runner error code of the failure.
	Outcome string `json:"outcome"`

	// Result holds what the step produced (saved id, search titles,
	// export document, timers fired, code injected).
	Result map[string]any `json:"result,omitempty"`

	// Writes is the number of successful store writes during the step.
	Writes int `json:"writes"`
}

// Snapshot is the state left behind by a scenario.
type Snapshot struct {
	Scripts   []script.Script `json:"scripts"`
	Session   session.State   `json:"session"`
	Persisted []string        `json:"persisted"`
	Injected  []string        `json:"injected"`
	Writes    int             `json:"writes"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order. The initial load
	// is event 0.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Final is the state after the last step.
	Final Snapshot `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
