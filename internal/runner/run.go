package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scriptrunner/internal/script"
)

var errNoExecutor = errors.New("no executor configured")

// Run injects code into the executor. With RequiresJQuery the cached
// library payload is injected first; if it is missing the code is not
// run. Failures are returned, never retried.
func (r *Runner) Run(ctx context.Context, code string, opts script.Options) error {
	if opts.RequiresJQuery {
		lib, err := r.library(ctx)
		if err != nil {
			return r.fail("run", err)
		}
		if err := r.inject(ctx, lib); err != nil {
			return r.fail("run", err, "stage", "library")
		}
	}
	if err := r.inject(ctx, code); err != nil {
		return r.fail("run", err, "stage", "script")
	}
	return nil
}

// RunScript runs the stored script with id.
func (r *Runner) RunScript(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.scripts.Find(id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r.Run(ctx, s.Code, s.Options)
}

// RunDraft runs the open editor's draft without saving it.
func (r *Runner) RunDraft(ctx context.Context) error {
	r.mu.Lock()
	open := r.editor.IsOpen()
	draft := r.editor.State().Draft
	r.mu.Unlock()

	if !open {
		return fmt.Errorf("run draft: %w", ErrEditorClosed)
	}
	return r.Run(ctx, draft.Code, draft.Options)
}

// RunFirstMatch runs the first script matching query and returns it.
func (r *Runner) RunFirstMatch(ctx context.Context, query string) (script.Script, error) {
	matches := r.Search(query)
	if len(matches) == 0 {
		return script.Script{}, fmt.Errorf("run %q: %w", query, ErrNoMatch)
	}
	return matches[0], r.Run(ctx, matches[0].Code, matches[0].Options)
}

// CacheLibrary stores the library payload injected before scripts that
// require it.
func (r *Runner) CacheLibrary(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return errors.New("cache library: empty payload")
	}
	if err := r.store.Set(ctx, map[string][]byte{KeyLibrary: payload}); err != nil {
		return r.fail("cache library", storeErr(err))
	}
	r.logger.Debug("cached library", "bytes", len(payload))
	return nil
}

func (r *Runner) library(ctx context.Context) (string, error) {
	vals, err := r.store.Get(ctx, KeyLibrary)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInjectionDependencyMissing, err)
	}
	lib := vals[KeyLibrary]
	if len(lib) == 0 {
		return "", fmt.Errorf("%w: library payload not cached", ErrInjectionDependencyMissing)
	}
	return string(lib), nil
}

func (r *Runner) inject(ctx context.Context, code string) error {
	if r.executor == nil {
		return fmt.Errorf("%w: %w", ErrHostExecution, errNoExecutor)
	}
	if err := r.executor.Inject(ctx, code); err != nil {
		return fmt.Errorf("%w: %w", ErrHostExecution, err)
	}
	return nil
}
