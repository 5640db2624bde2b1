package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/scriptrunner/internal/runner"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
	"github.com/roach88/scriptrunner/internal/store"
	"github.com/roach88/scriptrunner/internal/testutil"
)

// errHostDown is what the executor returns between host_down and host_up.
var errHostDown = errors.New("host page refused the injection")

// Harness is the test execution engine.
// It runs scenarios with a manual clock and sequential ids.
type Harness struct {
	backing *store.MemoryStore
	store   *testutil.RecordingStore
	clock   *testutil.ManualClock
	ids     *testutil.SequenceIDs
	host    *testutil.RecordingExecutor
	files   *testutil.MemoryTransfer
	runner  *runner.Runner
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store for isolation.
// Execution flow:
// 1. Seed the store from setup
// 2. Create the Runner and initialize it (trace event 0)
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the trace and final state
//
// A returned error means the harness itself could not run; scenario
// failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with runner logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	backing := store.NewMemory()
	h := &Harness{
		backing: backing,
		store:   testutil.NewRecordingStore(backing),
		ids:     testutil.NewSequenceIDs(""),
		host:    testutil.NewRecordingExecutor(),
		files:   testutil.NewMemoryTransfer(),
		logger:  logger,
	}
	defer h.store.Close()

	ctx := context.Background()
	result := NewResult()

	var boot *Expect
	if scenario.Setup != nil {
		if err := h.seed(ctx, scenario.Setup); err != nil {
			return nil, fmt.Errorf("failed to execute setup: %w", err)
		}
		boot = scenario.Setup.Expect
	}

	ev, err := h.step(ctx, 0, Step{Op: OpRestart})
	if err != nil {
		return nil, err
	}
	result.AddTrace(ev)
	h.check(result, "setup", ev, nil, boot)

	for i, step := range scenario.Flow {
		ev, err := h.step(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
		result.AddTrace(ev)
		h.check(result, fmt.Sprintf("flow[%d] %s", i, step.Op), ev, ev.Result["titles"], step.Expect)
	}

	final, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = final

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seed writes the setup state straight to the backing store so it is not
// counted as a write made by the flow.
func (h *Harness) seed(ctx context.Context, setup *Setup) error {
	entries := make(map[string][]byte)

	if len(setup.Scripts) > 0 {
		scripts := make([]script.Script, len(setup.Scripts))
		for i, f := range setup.Scripts {
			scripts[i] = script.Script{
				ID:      f.ID,
				Title:   f.Title,
				Code:    f.Code,
				Options: script.Options{RequiresJQuery: f.RequiresJQuery},
			}
		}
		data, err := json.Marshal(scripts)
		if err != nil {
			return err
		}
		entries[runner.KeyScripts] = data
	}

	if setup.Editor != nil {
		state := session.State{
			Mode:       session.Open,
			SelectedID: setup.Editor.Selected,
			Draft: session.Draft{
				Title:   setup.Editor.Title,
				Code:    setup.Editor.Code,
				Options: script.Options{RequiresJQuery: setup.Editor.RequiresJQuery},
			},
		}
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		entries[runner.KeyState] = data
	}

	if setup.Library != "" {
		entries[runner.KeyLibrary] = []byte(setup.Library)
	}
	for key, value := range setup.Raw {
		entries[key] = []byte(value)
	}
	for name, blob := range setup.Files {
		h.files.Put(name, []byte(blob))
	}

	if len(entries) == 0 {
		return nil
	}
	return h.backing.Set(ctx, entries)
}

// step executes one step and records what it did.
func (h *Harness) step(ctx context.Context, seq int, step Step) (TraceEvent, error) {
	writes := h.store.SetCount()
	injected := len(h.host.Injected())

	res, err := h.execute(ctx, step)
	if errors.Is(err, errHarness) {
		return TraceEvent{}, err
	}

	ev := TraceEvent{
		Seq:     seq,
		Op:      step.Op,
		Outcome: outcomeOf(err),
		Result:  res,
		Writes:  h.store.SetCount() - writes,
	}
	if code := h.host.Injected()[injected:]; len(code) > 0 {
		if ev.Result == nil {
			ev.Result = make(map[string]any)
		}
		ev.Result["injected"] = code
	}

	h.logger.Info("step completed",
		"seq", seq,
		"op", step.Op,
		"outcome", ev.Outcome,
		"writes", ev.Writes,
	)
	return ev, nil
}

// errHarness marks failures of the harness rather than of the Runner.
var errHarness = errors.New("harness")

// execute maps an operation onto the Runner. The returned map is the step
// result recorded in the trace.
func (h *Harness) execute(ctx context.Context, step Step) (map[string]any, error) {
	a := step.Args
	r := h.runner

	switch step.Op {
	case OpRestart:
		h.clock = testutil.NewManualClock()
		next, err := runner.New(runner.Deps{
			Store:    h.store,
			Executor: h.host,
			Transfer: h.files,
			IDs:      h.ids,
			Clock:    h.clock,
			Logger:   h.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errHarness, err)
		}
		h.runner = next
		if err := next.Initialize(ctx); err != nil {
			return nil, err
		}
		view := next.CurrentView("")
		return map[string]any{
			"scripts": view.Total,
			"editor":  view.Session.Mode.String(),
		}, nil

	case OpOpenNew:
		return nil, r.OpenForCreate(ctx)

	case OpOpen:
		return nil, r.OpenForEdit(ctx, a.ID)

	case OpEdit:
		edit := session.DraftEdit{Title: a.Title, Code: a.Code}
		if a.RequiresJQuery != nil {
			edit.Options = &script.Options{RequiresJQuery: *a.RequiresJQuery}
		}
		return nil, r.EditDraft(ctx, edit)

	case OpClose:
		return nil, r.Close(ctx)

	case OpSave:
		saved, err := r.Save(ctx)
		if saved.ID == "" {
			return nil, err
		}
		return map[string]any{"id": saved.ID, "title": saved.Title}, err

	case OpDelete:
		return nil, r.Delete(ctx, a.ID)

	case OpSearch:
		return map[string]any{"titles": titlesOf(r.Search(a.Query))}, nil

	case OpDispatch:
		kind, err := runner.ParseCommandKind(a.Kind)
		if err != nil {
			return nil, err
		}
		return nil, r.Dispatch(ctx, runner.Command{Kind: kind, ID: a.ID})

	case OpRun:
		var code string
		if a.Code != nil {
			code = *a.Code
		}
		opts := script.DefaultOptions()
		if a.RequiresJQuery != nil {
			opts.RequiresJQuery = *a.RequiresJQuery
		}
		return nil, r.Run(ctx, code, opts)

	case OpRunScript:
		return nil, r.RunScript(ctx, a.ID)

	case OpRunDraft:
		return nil, r.RunDraft(ctx)

	case OpRunFirst:
		s, err := r.RunFirstMatch(ctx, a.Query)
		if s.ID == "" {
			return nil, err
		}
		return map[string]any{"id": s.ID, "titles": []string{s.Title}}, err

	case OpCacheLibrary:
		return nil, r.CacheLibrary(ctx, []byte(a.Payload))

	case OpExport:
		if a.Name == "" {
			blob, err := r.ExportAll(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"document": string(blob)}, nil
		}
		if err := r.ExportTo(ctx, a.Name); err != nil {
			return nil, err
		}
		blob, _ := h.files.File(a.Name)
		return map[string]any{"name": a.Name, "bytes": len(blob)}, nil

	case OpImport:
		var err error
		if a.Name != "" {
			err = r.ImportFrom(ctx, a.Name)
		} else {
			err = r.ImportAll(ctx, []byte(a.Blob))
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"titles": titlesOf(r.Search(""))}, nil

	case OpAdvance:
		fired := h.clock.Advance(time.Duration(a.Ms) * time.Millisecond)
		return map[string]any{"fired": fired}, nil

	case OpShutdown:
		return nil, r.Shutdown(ctx)

	case OpStoreDown, OpStoreUp:
		down := step.Op == OpStoreDown
		h.store.FailGet(down)
		h.store.FailSet(down)
		return nil, nil

	case OpHostDown:
		h.host.FailWith(errHostDown)
		return nil, nil

	case OpHostUp:
		h.host.FailWith(nil)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown op %q", errHarness, step.Op)
	}
}

// check compares a step's outcome with its expect clause.
func (h *Harness) check(result *Result, label string, ev TraceEvent, titles any, expect *Expect) {
	want := OutcomeOK
	if expect != nil && expect.Error != "" {
		want = expect.Error
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("%s: expected outcome %s, got %s", label, want, ev.Outcome))
		return
	}
	if expect == nil || expect.Titles == nil {
		return
	}
	got, _ := titles.([]string)
	if !slices.Equal(got, expect.Titles) {
		result.AddError(fmt.Sprintf("%s: expected titles %q, got %q", label, expect.Titles, got))
	}
}

// snapshot reads the final in-memory and persisted state.
func (h *Harness) snapshot(ctx context.Context) (Snapshot, error) {
	view := h.runner.CurrentView("")

	persisted := []string{}
	stored, err := h.backing.Get(ctx, runner.KeyScripts)
	if err != nil {
		return Snapshot{}, err
	}
	if data, ok := stored[runner.KeyScripts]; ok {
		var scripts []script.Script
		if err := json.Unmarshal(data, &scripts); err != nil {
			return Snapshot{}, fmt.Errorf("stored scripts: %w", err)
		}
		persisted = titlesOf(scripts)
	}

	injected := h.host.Injected()
	if injected == nil {
		injected = []string{}
	}

	return Snapshot{
		Scripts:   view.Scripts,
		Session:   view.Session,
		Persisted: persisted,
		Injected:  injected,
		Writes:    h.store.SetCount(),
	}, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return string(runner.CodeOf(err))
}

func titlesOf(scripts []script.Script) []string {
	titles := make([]string, len(scripts))
	for i, s := range scripts {
		titles[i] = s.Title
	}
	return titles
}
