package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scriptrunner/internal/transfer"
)

var errNoTransfer = errors.New("no file transfer configured")

// ExportAll returns the canonical JSON export of the collection. Editor
// state is not included. It has no side effects.
func (r *Runner) ExportAll(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	scripts := r.scripts.All()
	r.mu.Unlock()

	return transfer.Marshal(scripts)
}

// ImportAll replaces the whole collection with the scripts in blob and
// persists. Existing scripts not in blob are lost. A blob that is not a
// valid export returns ErrMalformedImport and changes nothing. If the
// editor is open on a script that is not imported, it is closed.
func (r *Runner) ImportAll(ctx context.Context, blob []byte) error {
	scripts, err := transfer.Decode(blob)
	if err != nil {
		return r.fail("import", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.scripts.Replace(scripts); err != nil {
		return r.fail("import", fmt.Errorf("%w: %w", ErrMalformedImport, err))
	}
	if selected, ok := r.editor.Selected(); ok {
		if _, found := r.scripts.Find(selected); !found {
			r.editor.Close()
		}
	}
	if err := r.persistLocked(ctx); err != nil {
		return r.fail("import", err)
	}
	r.logger.Info("imported scripts", "count", len(scripts))
	return nil
}

// ExportTo writes the export to name through the FileTransfer. Names
// ending in .lz4 are compressed.
func (r *Runner) ExportTo(ctx context.Context, name string) error {
	if r.transfer == nil {
		return fmt.Errorf("export: %w", errNoTransfer)
	}
	if name == "" {
		name = transfer.DefaultName
	}

	r.mu.Lock()
	scripts := r.scripts.All()
	r.mu.Unlock()

	blob, err := transfer.Encode(scripts, name)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := r.transfer.Export(ctx, name, blob); err != nil {
		return r.fail("export", err, "name", name)
	}
	return nil
}

// ImportFrom reads name through the FileTransfer and imports it with
// ImportAll semantics.
func (r *Runner) ImportFrom(ctx context.Context, name string) error {
	if r.transfer == nil {
		return fmt.Errorf("import: %w", errNoTransfer)
	}
	if name == "" {
		name = transfer.DefaultName
	}
	blob, err := r.transfer.Import(ctx, name)
	if err != nil {
		return r.fail("import", err, "name", name)
	}
	return r.ImportAll(ctx, blob)
}
