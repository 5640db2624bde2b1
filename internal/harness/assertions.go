package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Seq, event.Op, event.Outcome)
	}

	return buf.String()
}

func assertTitles(kind string, got, want []string, trace []TraceEvent) error {
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("titles %q", want),
		Actual:   fmt.Sprintf("titles %q", got),
		Trace:    trace,
	}
}

func assertScripts(result *Result, a Assertion) error {
	got := make([]string, len(result.Final.Scripts))
	ids := make([]string, len(result.Final.Scripts))
	for i, s := range result.Final.Scripts {
		got[i] = s.Title
		ids[i] = s.ID
	}
	if err := assertTitles(AssertScripts, got, a.Titles, result.Trace); err != nil {
		return err
	}
	if len(a.IDs) > 0 && !slices.Equal(ids, a.IDs) {
		return &AssertionError{
			Type:     AssertScripts,
			Expected: fmt.Sprintf("ids %q", a.IDs),
			Actual:   fmt.Sprintf("ids %q", ids),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEditor(result *Result, a Assertion) error {
	state := result.Final.Session
	var mismatches []string

	if state.Mode.String() != a.Mode {
		mismatches = append(mismatches, fmt.Sprintf("mode %s (want %s)", state.Mode, a.Mode))
	}
	if state.SelectedID != a.Selected {
		mismatches = append(mismatches, fmt.Sprintf("selected %q (want %q)", state.SelectedID, a.Selected))
	}
	if a.Title != nil && state.Draft.Title != *a.Title {
		mismatches = append(mismatches, fmt.Sprintf("title %q (want %q)", state.Draft.Title, *a.Title))
	}
	if a.Code != nil && state.Draft.Code != *a.Code {
		mismatches = append(mismatches, fmt.Sprintf("code %q (want %q)", state.Draft.Code, *a.Code))
	}

	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertEditor,
		Expected: fmt.Sprintf("editor %s selected=%q", a.Mode, a.Selected),
		Actual:   strings.Join(mismatches, ", "),
		Trace:    result.Trace,
	}
}

func assertWrites(result *Result, a Assertion) error {
	if result.Final.Writes == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertWrites,
		Expected: fmt.Sprintf("%d store writes", a.Count),
		Actual:   fmt.Sprintf("%d store writes", result.Final.Writes),
		Trace:    result.Trace,
	}
}

func assertInjected(result *Result, a Assertion) error {
	if slices.Equal(result.Final.Injected, a.Injected) {
		return nil
	}
	return &AssertionError{
		Type:     AssertInjected,
		Expected: fmt.Sprintf("%q", a.Injected),
		Actual:   fmt.Sprintf("%q", result.Final.Injected),
		Trace:    result.Trace,
	}
}

// assertTraceCount counts flow steps; the initial load is not a step.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Seq == 0 || ev.Op != a.Op {
			continue
		}
		if a.Outcome == "" || ev.Outcome == a.Outcome {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	what := a.Op
	if a.Outcome != "" {
		what += " -> " + a.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s exactly %d times", what, a.Count),
		Actual:   fmt.Sprintf("%s %d times", what, count),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertScripts:
			err = assertScripts(result, assertion)
		case AssertPersisted:
			err = assertTitles(AssertPersisted, result.Final.Persisted, assertion.Titles, result.Trace)
		case AssertEditor:
			err = assertEditor(result, assertion)
		case AssertWrites:
			err = assertWrites(result, assertion)
		case AssertInjected:
			err = assertInjected(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
