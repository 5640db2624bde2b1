package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scriptrunner/internal/script"
)

// testEnv is a config file and .env in a temp dir, with a file store and a
// local transfer directory next to them.
type testEnv struct {
	dir     string
	config  string
	envFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		envFile: filepath.Join(dir, ".env"),
	}

	cfg := "store:\n" +
		"  driver: file\n" +
		"  dsn: " + filepath.Join(dir, "state.json") + "\n" +
		"transfer:\n" +
		"  kind: file\n" +
		"  dir: " + env.exports() + "\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(env.envFile, nil, 0o644))
	return env
}

func (e *testEnv) exports() string {
	return filepath.Join(e.dir, "exports")
}

func noEnv(string) (string, bool) { return "", false }

func (e *testEnv) command(args ...string) (*bytes.Buffer, *bytes.Buffer, func() error) {
	return e.commandWith(&RootOptions{LookupEnv: noEnv}, args...)
}

func (e *testEnv) commandWith(opts *RootOptions, args ...string) (*bytes.Buffer, *bytes.Buffer, func() error) {
	cmd := newRootCommand(opts)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--env-file", e.envFile}, args...))
	return stdout, stderr, cmd.Execute
}

// run executes one command and returns its stdout.
func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, exec := e.command(args...)
	require.NoError(t, exec(), "stdout: %s\nstderr: %s", stdout, stderr)
	return stdout.String()
}

// fail executes one command that must fail and returns its stdout and error.
func (e *testEnv) fail(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, exec := e.command(args...)
	err := exec()
	require.Error(t, err)
	return stdout.String(), err
}

type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// createScript goes through the editor and returns the saved script.
func (e *testEnv) createScript(t *testing.T, title, code string, extra ...string) script.Script {
	t.Helper()
	e.run(t, "editor", "new")
	e.run(t, append([]string{"editor", "set", "--title", title, "--code", code}, extra...)...)

	resp := decodeResponse(t, e.run(t, "--format", "json", "editor", "save"))
	require.Equal(t, "ok", resp.Status)
	var saved script.Script
	require.NoError(t, json.Unmarshal(resp.Data, &saved))
	require.NotEmpty(t, saved.ID)
	return saved
}

func TestCLI_CreateRunDelete(t *testing.T) {
	env := newTestEnv(t)

	saved := env.createScript(t, "Hello", `console.log("hi")`)
	assert.Equal(t, "Hello", saved.Title)

	resp := decodeResponse(t, env.run(t, "--format", "json", "list"))
	var list ListData
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Scripts, 1)
	assert.Equal(t, saved.ID, list.Scripts[0].ID)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "closed", list.Session.Mode.String())

	out := env.run(t, "run", saved.ID)
	assert.Contains(t, out, "hi\n")
	assert.Contains(t, out, "Ran "+saved.ID)

	out = env.run(t, "run", "--first", "hel")
	assert.Contains(t, out, "hi\n")
	assert.Contains(t, out, "(Hello)")

	out = env.run(t, "delete", saved.ID)
	assert.Contains(t, out, "Deleted "+saved.ID)

	stdout, _, exec := env.command("--format", "json", "delete", saved.ID)
	err := exec()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp = decodeResponse(t, stdout.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
}

func TestCLI_DraftSurvivesBetweenCommands(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "editor", "new")
	env.run(t, "editor", "set", "--title", "Draft", "--code", "1 + 1")

	out := env.run(t, "editor", "show")
	assert.Contains(t, out, "Editor: open (new script)")
	assert.Contains(t, out, "Title:   Draft")
	assert.Contains(t, out, "  1 + 1")

	out = env.run(t, "editor", "close")
	assert.Contains(t, out, "Editor: closed")

	out = env.run(t, "list")
	assert.NotContains(t, out, "Draft")
}

func TestCLI_EditorSetNeedsAFlag(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "editor", "new")

	_, err := env.fail(t, "editor", "set")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCLI_EditorSetOnClosedEditor(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.fail(t, "editor", "set", "--title", "x")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E008")
}

func TestCLI_CodeFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "snippet.js")
	require.NoError(t, os.WriteFile(path, []byte(`console.log("from file")`), 0o644))

	env.run(t, "editor", "new")
	env.run(t, "editor", "set", "--code-file", path)

	out := env.run(t, "run", "--draft")
	assert.Contains(t, out, "from file\n")
	assert.Contains(t, out, "Ran the editor draft")
}

func TestCLI_RequiresJQuery(t *testing.T) {
	env := newTestEnv(t)
	saved := env.createScript(t, "Probe", `console.log(typeof window.$)`, "--requires-jquery")
	assert.True(t, saved.Options.RequiresJQuery)

	out, err := env.fail(t, "run", saved.ID)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E006")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("window.$ = function () {};"))
	}))
	defer srv.Close()

	out = env.run(t, "library", "fetch", "--url", srv.URL)
	assert.Contains(t, out, "Cached 26 bytes from "+srv.URL)

	out = env.run(t, "run", saved.ID)
	assert.Contains(t, out, "function\n")
}

func TestCLI_LibraryFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	out, err := env.fail(t, "library", "fetch", "--url", srv.URL)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E000")
}

func TestCLI_ExportImport(t *testing.T) {
	env := newTestEnv(t)
	first := env.createScript(t, "First", "1")
	env.createScript(t, "Second", "2")

	out := env.run(t, "export", "backup.json")
	assert.Contains(t, out, "Exported to backup.json")
	_, err := os.Stat(filepath.Join(env.exports(), "backup.json"))
	require.NoError(t, err)

	env.run(t, "delete", first.ID)

	out = env.run(t, "import", "backup.json", "--yes")
	assert.Contains(t, out, "Imported 2 scripts from backup.json")

	out = env.run(t, "list")
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "Second")
}

func TestCLI_ExportStdout(t *testing.T) {
	env := newTestEnv(t)
	env.createScript(t, "Only", "1")

	out := env.run(t, "export", "--stdout")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "scripts")

	_, err := os.Stat(env.exports())
	assert.True(t, os.IsNotExist(err), "--stdout must not touch the transfer dir")
}

func TestCLI_ImportMalformed(t *testing.T) {
	env := newTestEnv(t)
	env.createScript(t, "Keep", "1")
	require.NoError(t, os.MkdirAll(env.exports(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.exports(), "bad.json"), []byte("{not json"), 0o644))

	out, err := env.fail(t, "import", "bad.json", "--yes")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E004")

	assert.Contains(t, env.run(t, "list"), "Keep")
}

func TestCLI_ImportDeclined(t *testing.T) {
	env := newTestEnv(t)
	env.createScript(t, "Keep", "1")
	env.run(t, "export")

	var asked string
	opts := &RootOptions{LookupEnv: noEnv}
	root := newRootCommand(opts)
	for _, c := range root.Commands() {
		if c.Name() == "import" {
			root.RemoveCommand(c)
		}
	}
	root.AddCommand(newImportCommand(&ImportOptions{
		RootOptions: opts,
		Confirm: func(msg string) (bool, error) {
			asked = msg
			return false, nil
		},
	}))

	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", env.config, "--env-file", env.envFile, "import"})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, asked, "Replace all 1 scripts")
	assert.Contains(t, stdout.String(), "E012")
}

func TestCLI_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, exec := env.command("--driver", "bogus", "--format", "json", "list")
	err := exec()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeResponse(t, stdout.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeConfig, resp.Error.Code)
}

func TestCLI_CorruptState(t *testing.T) {
	env := newTestEnv(t)
	// "bm90IGpzb24=" is "not json".
	state := `{"scripts":"bm90IGpzb24="}`
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "state.json"), []byte(state), 0o644))

	out, err := env.fail(t, "list")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E003")
}

func TestCLI_MemoryDriver(t *testing.T) {
	env := newTestEnv(t)

	out := env.run(t, "--driver", "memory", "list")
	assert.Contains(t, out, "Editor: closed")
}

func TestCLI_TestCommand(t *testing.T) {
	env := newTestEnv(t)

	t.Run("shipped scenarios pass", func(t *testing.T) {
		out := env.run(t, "test", "../harness/testdata/scenarios", "--golden-dir", "../harness/testdata/golden")
		assert.Contains(t, out, "All scenarios passed")
	})

	t.Run("update writes golden files", func(t *testing.T) {
		golden := filepath.Join(t.TempDir(), "golden")
		env.run(t, "test", "../harness/testdata/scenarios", "--golden-dir", golden, "--update")

		entries, err := os.ReadDir(golden)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Contains(t, names, "create_and_save.golden")

		out := env.run(t, "test", "../harness/testdata/scenarios", "--golden-dir", golden)
		assert.Contains(t, out, "All scenarios passed")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := env.fail(t, "test", filepath.Join(env.dir, "nope"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("filter", func(t *testing.T) {
		stdout, _, exec := env.command("--format", "json", "test", "../harness/testdata/scenarios",
			"--golden-dir", "../harness/testdata/golden", "--filter", "import*")
		require.NoError(t, exec())
		resp := decodeResponse(t, stdout.String())
		var result TestResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		require.Equal(t, 1, result.Total)
		assert.True(t, strings.HasPrefix(result.Scenarios[0].Name, "import"))
	})
}
