package runner

import (
	"context"
	"fmt"
)

// CommandKind names an action on a listed script.
type CommandKind int

const (
	CommandRun CommandKind = iota + 1
	CommandEdit
	CommandDelete
)

func (k CommandKind) String() string {
	switch k {
	case CommandRun:
		return "run"
	case CommandEdit:
		return "edit"
	case CommandDelete:
		return "delete"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// ParseCommandKind parses "run", "edit" or "delete".
func ParseCommandKind(s string) (CommandKind, error) {
	for _, k := range []CommandKind{CommandRun, CommandEdit, CommandDelete} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Command is an action on the script with ID.
type Command struct {
	Kind CommandKind
	ID   string
}

// Dispatch performs cmd.
func (r *Runner) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandRun:
		return r.RunScript(ctx, cmd.ID)
	case CommandEdit:
		return r.OpenForEdit(ctx, cmd.ID)
	case CommandDelete:
		return r.Delete(ctx, cmd.ID)
	default:
		return fmt.Errorf("dispatch: %w: %s", ErrUnknownCommand, cmd.Kind)
	}
}
