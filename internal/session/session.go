// Package session implements the editor state machine: whether the editor
// is open, which script it edits, and the unsaved draft.
//
// An Editor cycles for the life of the process. It starts Closed unless
// Restore brings back a persisted state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/scriptrunner/internal/script"
)

// ErrEditorClosed is returned by operations that need an open editor.
var ErrEditorClosed = errors.New("editor is closed")

// ErrInvalidState is returned by Restore for a state that breaks the
// selection invariant.
var ErrInvalidState = errors.New("invalid editor state")

// Mode is the editor mode.
type Mode int

const (
	Closed Mode = iota
	Open
)

func (m Mode) String() string {
	switch m {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalJSON encodes the mode as "closed" or "open".
func (m Mode) MarshalJSON() ([]byte, error) {
	switch m {
	case Closed, Open:
		return json.Marshal(m.String())
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidState, int(m))
	}
}

// UnmarshalJSON accepts "closed" or "open".
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: mode: %w", ErrInvalidState, err)
	}
	switch s {
	case "closed":
		*m = Closed
	case "open":
		*m = Open
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidState, s)
	}
	return nil
}

// Draft holds unsaved edits. While the editor is open it is the single
// source of truth for the fields it carries.
type Draft struct {
	Title   string         `json:"title"`
	Code    string         `json:"code"`
	Options script.Options `json:"options"`
}

// UnmarshalJSON applies the default options when they are missing.
func (d *Draft) UnmarshalJSON(data []byte) error {
	type plain Draft
	p := plain{Options: script.DefaultOptions()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Draft(p)
	return nil
}

// State is a snapshot of the editor, in the shape it is persisted.
// SelectedID is empty when absent.
type State struct {
	Mode       Mode   `json:"mode"`
	SelectedID string `json:"selectedScriptId,omitempty"`
	Draft      Draft  `json:"draft"`
}

// Validate checks that a selection only exists while the editor is open.
func (s State) Validate() error {
	if s.Mode != Open && s.Mode != Closed {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidState, int(s.Mode))
	}
	if s.Mode == Closed && s.SelectedID != "" {
		return fmt.Errorf("%w: closed editor has selection %q", ErrInvalidState, s.SelectedID)
	}
	return nil
}

// DraftEdit names the draft fields to change. Nil fields are left as they are.
type DraftEdit struct {
	Title   *string
	Code    *string
	Options *script.Options
}

// Empty reports whether the edit changes nothing.
func (e DraftEdit) Empty() bool {
	return e.Title == nil && e.Code == nil && e.Options == nil
}

// Editor is the editor state machine. It is not safe for concurrent use.
type Editor struct {
	state State
}

// New returns a Closed editor.
func New() *Editor {
	return &Editor{state: closedState()}
}

func closedState() State {
	return State{Mode: Closed, Draft: Draft{Options: script.DefaultOptions()}}
}

// State returns a snapshot of the editor.
func (e *Editor) State() State {
	return e.state
}

// IsOpen reports whether the editor is open.
func (e *Editor) IsOpen() bool {
	return e.state.Mode == Open
}

// Selected returns the id being edited. It is false when the editor is
// closed or is creating a new script.
func (e *Editor) Selected() (string, bool) {
	if e.state.Mode != Open || e.state.SelectedID == "" {
		return "", false
	}
	return e.state.SelectedID, true
}

// OpenForCreate opens an empty draft with default options, from any state.
func (e *Editor) OpenForCreate() {
	e.state = State{Mode: Open, Draft: Draft{Options: script.DefaultOptions()}}
}

// OpenForEdit opens the editor on s, from any state. Callers resolve the id
// through the collection first.
func (e *Editor) OpenForEdit(s script.Script) {
	e.state = State{
		Mode:       Open,
		SelectedID: s.ID,
		Draft:      Draft{Title: s.Title, Code: s.Code, Options: s.Options},
	}
}

// EditDraft applies the provided fields of edit. Editing a closed editor is
// a usage error.
func (e *Editor) EditDraft(edit DraftEdit) error {
	if e.state.Mode != Open {
		return fmt.Errorf("edit draft: %w", ErrEditorClosed)
	}
	if edit.Title != nil {
		e.state.Draft.Title = *edit.Title
	}
	if edit.Code != nil {
		e.state.Draft.Code = *edit.Code
	}
	if edit.Options != nil {
		e.state.Draft.Options = *edit.Options
	}
	return nil
}

// Close discards the draft and clears the selection. Closing a closed
// editor does nothing.
func (e *Editor) Close() {
	e.state = closedState()
}

// Commit writes the draft into c and closes the editor. With a selection it
// updates that script in place, otherwise it creates a new one. On error the
// editor stays open with its draft intact.
func (e *Editor) Commit(c *script.Collection) (script.Script, error) {
	if e.state.Mode != Open {
		return script.Script{}, fmt.Errorf("commit: %w", ErrEditorClosed)
	}

	d := e.state.Draft
	var (
		saved script.Script
		err   error
	)
	if e.state.SelectedID != "" {
		saved, err = c.Update(e.state.SelectedID, d.Title, d.Code, d.Options)
	} else {
		saved, err = c.Create(d.Title, d.Code, d.Options)
	}
	if err != nil {
		return script.Script{}, fmt.Errorf("commit: %w", err)
	}

	e.Close()
	return saved, nil
}

// Restore replaces the editor state with s verbatim, including an unsaved
// draft. The draft of a closed state is dropped.
func (e *Editor) Restore(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Mode == Closed {
		e.state = closedState()
		return nil
	}
	e.state = s
	return nil
}
