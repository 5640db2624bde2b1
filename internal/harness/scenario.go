package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runner operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup seeds the store before the Runner is initialized.
	Setup *Setup `yaml:"setup,omitempty"`

	// Flow is executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Setup is the persisted state a scenario starts from.
type Setup struct {
	// Scripts are stored in order under the scripts key.
	Scripts []ScriptFixture `yaml:"scripts,omitempty"`

	// Editor, if set, is stored as an open editor.
	Editor *EditorFixture `yaml:"editor,omitempty"`

	// Library is stored as the cached library payload.
	Library string `yaml:"library,omitempty"`

	// Raw values are stored verbatim, after and over everything above.
	Raw map[string]string `yaml:"raw,omitempty"`

	// Files are made available to import by name.
	Files map[string]string `yaml:"files,omitempty"`

	// Expect is the expected outcome of the initial load. Without it the
	// load must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ScriptFixture is a stored script.
type ScriptFixture struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title"`
	Code           string `yaml:"code"`
	RequiresJQuery bool   `yaml:"requires_jquery,omitempty"`
}

// EditorFixture is a stored open editor.
type EditorFixture struct {
	Selected       string `yaml:"selected,omitempty"`
	Title          string `yaml:"title"`
	Code           string `yaml:"code"`
	RequiresJQuery bool   `yaml:"requires_jquery,omitempty"`
}

// Step invokes one runner operation.
type Step struct {
	// Op is the operation name; see the package documentation.
	Op string `yaml:"op"`

	// Args are the operation arguments. Unused fields are ignored.
	Args Args `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Args are the arguments of a step. Title, Code and RequiresJQuery are
// pointers so edit can change one draft field at a time.
type Args struct {
	ID             string  `yaml:"id,omitempty"`
	Title          *string `yaml:"title,omitempty"`
	Code           *string `yaml:"code,omitempty"`
	RequiresJQuery *bool   `yaml:"requires_jquery,omitempty"`
	Query          string  `yaml:"query,omitempty"`
	Kind           string  `yaml:"kind,omitempty"`
	Name           string  `yaml:"name,omitempty"`
	Blob           string  `yaml:"blob,omitempty"`
	Payload        string  `yaml:"payload,omitempty"`
	Ms             int     `yaml:"ms,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the runner error code the step must fail with. Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Titles, if set, are the titles search or run_first must yield.
	Titles []string `yaml:"titles,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Titles are the expected titles (scripts, persisted).
	Titles []string `yaml:"titles,omitempty"`

	// IDs are the expected ids (scripts). Not checked if empty.
	IDs []string `yaml:"ids,omitempty"`

	// Mode is "open" or "closed" (editor).
	Mode string `yaml:"mode,omitempty"`

	// Selected is the expected selection; "" means none (editor).
	Selected string `yaml:"selected,omitempty"`

	// Title and Code are the expected draft fields (editor).
	Title *string `yaml:"title,omitempty"`
	Code  *string `yaml:"code,omitempty"`

	// Injected is the expected host input (injected).
	Injected []string `yaml:"injected,omitempty"`

	// Op and Outcome select steps (trace_count). An empty Outcome matches
	// any outcome.
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number (writes, trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertScripts    = "scripts"
	AssertPersisted  = "persisted"
	AssertEditor     = "editor"
	AssertWrites     = "writes"
	AssertInjected   = "injected"
	AssertTraceCount = "trace_count"
)

// Operation names.
const (
	OpOpenNew      = "open_new"
	OpOpen         = "open"
	OpEdit         = "edit"
	OpClose        = "close"
	OpSave         = "save"
	OpDelete       = "delete"
	OpSearch       = "search"
	OpDispatch     = "dispatch"
	OpRun          = "run"
	OpRunScript    = "run_script"
	OpRunDraft     = "run_draft"
	OpRunFirst     = "run_first"
	OpCacheLibrary = "cache_library"
	OpExport       = "export"
	OpImport       = "import"
	OpAdvance      = "advance"
	OpShutdown     = "shutdown"
	OpRestart      = "restart"
	OpStoreDown    = "store_down"
	OpStoreUp      = "store_up"
	OpHostDown     = "host_down"
	OpHostUp       = "host_up"
)

// opsNeedingID lists operations that fail validation without args.id.
var opsNeedingID = []string{OpOpen, OpDelete, OpRunScript, OpDispatch}

var knownOps = []string{
	OpOpenNew, OpOpen, OpEdit, OpClose, OpSave, OpDelete, OpSearch,
	OpDispatch, OpRun, OpRunScript, OpRunDraft, OpRunFirst, OpCacheLibrary,
	OpExport, OpImport, OpAdvance, OpShutdown, OpRestart, OpStoreDown,
	OpStoreUp, OpHostDown, OpHostUp,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name. Scenario names must be unique.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s",
				filepath.Base(path), s.Name, filepath.Base(prev))
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Setup != nil {
		for i, sc := range s.Setup.Scripts {
			if sc.ID == "" {
				return fmt.Errorf("setup.scripts[%d]: id is required", i)
			}
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !slices.Contains(knownOps, step.Op) {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if slices.Contains(opsNeedingID, step.Op) && step.Args.ID == "" {
			return fmt.Errorf("flow[%d]: args.id is required for %s", i, step.Op)
		}
		if step.Op == OpDispatch && step.Args.Kind == "" {
			return fmt.Errorf("flow[%d]: args.kind is required for dispatch", i)
		}
		if step.Op == OpAdvance && step.Args.Ms <= 0 {
			return fmt.Errorf("flow[%d]: args.ms must be positive for advance", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertScripts, AssertPersisted, AssertInjected:
	case AssertEditor:
		if a.Mode != "open" && a.Mode != "closed" {
			return fmt.Errorf("assertions[%d]: mode must be open or closed for editor", index)
		}
	case AssertWrites:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for writes", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
