package transfer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDir_ExportImport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d, err := NewLocalDir(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Export(ctx, "a.json", []byte("one")))
	require.NoError(t, d.Export(ctx, "a.json", []byte("two")))

	got, err := d.Import(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	onDisk, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(onDisk))
}

func TestLocalDir_DefaultName(t *testing.T) {
	dir := t.TempDir()
	d, err := NewLocalDir(dir)
	require.NoError(t, err)

	require.NoError(t, d.Export(context.Background(), "", []byte("x")))
	_, err = os.Stat(filepath.Join(dir, DefaultName))
	require.NoError(t, err)
}

func TestLocalDir_AbsoluteAndNestedNames(t *testing.T) {
	d, err := NewLocalDir(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	abs := filepath.Join(t.TempDir(), "elsewhere", "out.json")
	require.NoError(t, d.Export(ctx, abs, []byte("abs")))
	got, err := d.Import(ctx, abs)
	require.NoError(t, err)
	assert.Equal(t, "abs", string(got))

	require.NoError(t, d.Export(ctx, filepath.Join("sub", "x.json"), []byte("nested")))
	got, err = d.Import(ctx, filepath.Join("sub", "x.json"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))
}

func TestLocalDir_ImportMissing(t *testing.T) {
	d, err := NewLocalDir(t.TempDir())
	require.NoError(t, err)

	_, err = d.Import(context.Background(), "nope.json")
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestLocalDir_CancelledContext(t *testing.T) {
	d, err := NewLocalDir(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, d.Export(ctx, "a", nil), context.Canceled)
	_, err = d.Import(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
}
