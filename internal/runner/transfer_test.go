package runner_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scriptrunner/internal/runner"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
	"github.com/roach88/scriptrunner/internal/store"
)

func content(scripts []script.Script) [][3]any {
	out := make([][3]any, len(scripts))
	for i, s := range scripts {
		out[i] = [3]any{s.Title, s.Code, s.Options}
	}
	return out
}

func TestExportAll_Deterministic(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Hello", "alert(1)", script.DefaultOptions())
	ctx := context.Background()
	f.store.ResetSets()

	first, err := f.r.ExportAll(ctx)
	require.NoError(t, err)
	second, err := f.r.ExportAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t,
		`{"scripts":[{"code":"alert(1)","id":"script-0001","options":{"requiresJQuery":false},"title":"Hello"}]}`,
		string(first))
	assert.Zero(t, f.store.SetCount(), "export has no side effects")
}

func TestExportAll_ExcludesSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.OpenForCreate(context.Background()))

	blob, err := f.r.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"scripts":[]}`, string(blob))
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newFixture(t)
	src.create(t, "one", "1", script.DefaultOptions())
	src.create(t, "two <b>", "$('b')", script.Options{RequiresJQuery: true})
	src.create(t, "two <b>", "dup title", script.DefaultOptions())
	ctx := context.Background()

	blob, err := src.r.ExportAll(ctx)
	require.NoError(t, err)

	dst := newFixture(t)
	dst.store.ResetSets()
	require.NoError(t, dst.r.ImportAll(ctx, blob))

	want := src.r.CurrentView("").Scripts
	got := dst.r.CurrentView("").Scripts
	assert.Equal(t, content(want), content(got))
	assert.Len(t, got, 3)
	assert.Equal(t, [][]string{bothKeys}, dst.store.Sets())
	assert.Equal(t, got, dst.persistedScripts(t))
}

func TestImportAll_Replaces(t *testing.T) {
	f := newFixture(t)
	f.create(t, "old", "", script.DefaultOptions())
	ctx := context.Background()

	require.NoError(t, f.r.ImportAll(ctx, []byte(`{"scripts":[{"title":"new","code":"n"}]}`)))

	all := f.r.CurrentView("").Scripts
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Title)
	assert.NotEmpty(t, all[0].ID, "scripts without ids get one")
}

func TestImportAll_Malformed(t *testing.T) {
	f := newFixture(t)
	f.create(t, "keep", "k", script.DefaultOptions())
	before := f.r.CurrentView("").Scripts
	f.store.ResetSets()
	ctx := context.Background()

	for _, blob := range []string{
		`garbage`,
		`{"scripts":"nope"}`,
		`{"scripts":[{"title":1,"code":"x"}]}`,
		`{"scripts":[{"id":"a","title":"1","code":""},{"id":"a","title":"2","code":""}]}`,
	} {
		err := f.r.ImportAll(ctx, []byte(blob))
		require.ErrorIs(t, err, runner.ErrMalformedImport, blob)
		assert.Equal(t, runner.CodeMalformedImport, runner.CodeOf(err))
	}

	assert.Equal(t, before, f.r.CurrentView("").Scripts)
	assert.Zero(t, f.store.SetCount())
}

func TestImportAll_ClosesEditorOnDroppedSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, "editing", "", script.DefaultOptions())
	require.NoError(t, f.r.OpenForEdit(ctx, s.ID))

	require.NoError(t, f.r.ImportAll(ctx, []byte(`{"scripts":[]}`)))
	assert.Equal(t, session.Closed, f.r.CurrentView("").Session.Mode)
	assert.Equal(t, session.Closed, f.persistedState(t).Mode)
}

func TestImportAll_KeepsEditorWhenSelectionSurvives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, "editing", "", script.DefaultOptions())
	require.NoError(t, f.r.OpenForEdit(ctx, s.ID))

	blob, err := f.r.ExportAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.r.ImportAll(ctx, blob))

	st := f.r.CurrentView("").Session
	assert.Equal(t, session.Open, st.Mode)
	assert.Equal(t, s.ID, st.SelectedID)
}

func TestExportToImportFrom(t *testing.T) {
	f := newFixture(t)
	f.create(t, "packed", "p()", script.Options{RequiresJQuery: true})
	ctx := context.Background()

	require.NoError(t, f.r.ExportTo(ctx, "backup.json.lz4"))
	blob, ok := f.files.File("backup.json.lz4")
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(blob, []byte{0x04, 0x22, 0x4d, 0x18}))

	require.NoError(t, f.r.ExportTo(ctx, ""))
	_, ok = f.files.File("script-runner.json")
	assert.True(t, ok, "default export name")

	dst := newFixtureOn(t, store.NewMemory())
	dst.files.Put("backup.json.lz4", blob)
	require.NoError(t, dst.r.ImportFrom(ctx, "backup.json.lz4"))
	assert.Equal(t, content(f.r.CurrentView("").Scripts), content(dst.r.CurrentView("").Scripts))

	require.Error(t, dst.r.ImportFrom(ctx, "missing.json"))
}

func TestExportTo_NoTransfer(t *testing.T) {
	r, err := runner.New(runner.Deps{Store: store.NewMemory(), Logger: discardLogger()})
	require.NoError(t, err)
	require.Error(t, r.ExportTo(context.Background(), "x.json"))
	require.Error(t, r.ImportFrom(context.Background(), "x.json"))
}
