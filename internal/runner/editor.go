package runner

import (
	"context"
	"fmt"

	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// OpenForCreate opens the editor on an empty draft and persists.
func (r *Runner) OpenForCreate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.editor.OpenForCreate()
	if err := r.persistLocked(ctx); err != nil {
		return r.fail("open editor", err)
	}
	return nil
}

// OpenForEdit opens the editor on the script with id and persists. An
// unknown id returns ErrNotFound and leaves the editor as it was.
func (r *Runner) OpenForEdit(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scripts.Find(id)
	if !ok {
		return fmt.Errorf("open editor %q: %w", id, ErrNotFound)
	}
	r.editor.OpenForEdit(s)
	if err := r.persistLocked(ctx); err != nil {
		return r.fail("open editor", err, "id", id)
	}
	return nil
}

// EditDraft changes the provided draft fields and schedules an autosave.
// It does not write to the store.
func (r *Runner) EditDraft(_ context.Context, edit session.DraftEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.editor.EditDraft(edit); err != nil {
		return err
	}
	r.autosave.NotifyChanged()
	return nil
}

// Close discards the draft, cancels any pending autosave and persists the
// closed editor. Closing a closed editor does nothing.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.autosave.Cancel()
	if !r.editor.IsOpen() {
		return nil
	}
	r.editor.Close()
	if err := r.persistLocked(ctx); err != nil {
		return r.fail("close editor", err)
	}
	return nil
}

// Save commits the draft into the collection, closes the editor and writes
// both in one store write. If the write fails the commit stays in memory
// and the error is returned with the saved script.
func (r *Runner) Save(ctx context.Context) (script.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.autosave.Cancel()
	saved, err := r.editor.Commit(r.scripts)
	if err != nil {
		return script.Script{}, fmt.Errorf("save: %w", err)
	}
	if err := r.persistLocked(ctx); err != nil {
		return saved, r.fail("save", err, "id", saved.ID)
	}
	r.logger.Debug("saved script", "id", saved.ID)
	return saved, nil
}

// Delete removes the script with id and persists. If the editor is open on
// it, the editor is closed first. An unknown id returns ErrNotFound and
// changes nothing.
func (r *Runner) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scripts.Find(id); !ok {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	if selected, ok := r.editor.Selected(); ok && selected == id {
		r.editor.Close()
	}
	if err := r.scripts.Delete(id); err != nil {
		return err
	}
	if err := r.persistLocked(ctx); err != nil {
		return r.fail("delete", err, "id", id)
	}
	r.logger.Debug("deleted script", "id", id)
	return nil
}
