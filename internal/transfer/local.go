package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// LocalDir is a FileTransfer over a directory on disk. Relative names
// resolve under Dir; absolute names are used as they are.
type LocalDir struct {
	Dir string
}

// NewLocalDir returns a LocalDir rooted at dir, creating it if needed.
func NewLocalDir(dir string) (*LocalDir, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transfer dir: %w: %w", ErrUnavailable, err)
	}
	return &LocalDir{Dir: dir}, nil
}

func (d *LocalDir) path(name string) string {
	if name == "" {
		name = DefaultName
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(d.Dir, name)
}

// Export writes blob to name. A reader never sees a partial file.
func (d *LocalDir) Export(ctx context.Context, name string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := d.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("export %s: %w: %w", p, ErrUnavailable, err)
	}
	if err := atomic.WriteFile(p, bytes.NewReader(blob)); err != nil {
		return fmt.Errorf("export %s: %w: %w", p, ErrUnavailable, err)
	}
	return nil
}

// Import reads name.
func (d *LocalDir) Import(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := d.path(name)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("import %s: %w", p, err)
	}
	if err != nil {
		return nil, fmt.Errorf("import %s: %w: %w", p, ErrUnavailable, err)
	}
	return data, nil
}
