package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scriptrunner/internal/autosave"
	"github.com/roach88/scriptrunner/internal/library"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func opts(path string, env func(string) (string, bool)) LoadOptions {
	return LoadOptions{Path: path, LookupEnv: env}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.Store.DSN)
	assert.Equal(t, autosave.DefaultQuiet, cfg.Autosave.Quiet)
	assert.Equal(t, ExecutorGoja, cfg.Executor.Kind)
	assert.Equal(t, library.DefaultURL, cfg.Library.URL)
	assert.Equal(t, TransferFile, cfg.Transfer.Kind)
	assert.False(t, cfg.Validate().HasErrors())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
store:
  driver: postgres
  dsn: postgres://localhost/scripts
autosave:
  quiet: 250ms
executor:
  kind: websocket
  url: ws://localhost:9222/inject
  timeout: 5s
transfer:
  kind: minio
  minio:
    endpoint: localhost:9000
    access_key: key
    secret_key: secret
    bucket: exports
`)

	cfg, err := Load(opts(path, noEnv))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/scripts", cfg.Store.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Autosave.Quiet)
	assert.Equal(t, ExecutorWebsocket, cfg.Executor.Kind)
	assert.Equal(t, 5*time.Second, cfg.Executor.Timeout)
	assert.Equal(t, "exports", cfg.Transfer.MinIO.Bucket)
	assert.Equal(t, "us-east-1", cfg.Transfer.MinIO.Region, "unset keys keep defaults")
	assert.Equal(t, library.DefaultURL, cfg.Library.URL)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "config.yaml", "store:\n  drvier: sqlite\n")
	_, err := Load(opts(path, noEnv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drvier")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "")
	cfg, err := Load(opts(path, noEnv))
	require.NoError(t, err)
	assert.Equal(t, Default().Autosave, cfg.Autosave)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(opts(filepath.Join(t.TempDir(), "missing.yaml"), noEnv))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "store:\n  driver: file\n  dsn: /tmp/a.json\n")

	cfg, err := Load(opts(path, envMap(map[string]string{
		"SCRIPTRUNNER_STORE_DSN":        "/tmp/b.json",
		"SCRIPTRUNNER_AUTOSAVE_QUIET":   "2s",
		"SCRIPTRUNNER_TRANSFER_DIR":     "/tmp/exports",
		"SCRIPTRUNNER_MINIO_USE_SSL":    "true",
		"SCRIPTRUNNER_EXECUTOR_TIMEOUT": "0s",
	})))
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "/tmp/b.json", cfg.Store.DSN)
	assert.Equal(t, 2*time.Second, cfg.Autosave.Quiet)
	assert.Equal(t, "/tmp/exports", cfg.Transfer.Dir)
	assert.True(t, cfg.Transfer.MinIO.UseSSL)
	assert.Zero(t, cfg.Executor.Timeout)
}

func TestLoad_BadEnvValues(t *testing.T) {
	path := writeFile(t, "config.yaml", "")
	for key, value := range map[string]string{
		"SCRIPTRUNNER_AUTOSAVE_QUIET": "soon",
		"SCRIPTRUNNER_MINIO_USE_SSL":  "maybe",
	} {
		_, err := Load(opts(path, envMap(map[string]string{key: value})))
		assert.Error(t, err, key)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", "")
	envFile := writeFile(t, ".env", "SCRIPTRUNNER_STORE_DRIVER=memory\nSCRIPTRUNNER_LIBRARY_URL=http://example.test/lib.js\n")

	cfg, err := Load(LoadOptions{
		Path:    path,
		EnvFile: envFile,
		LookupEnv: envMap(map[string]string{
			"SCRIPTRUNNER_LIBRARY_URL": "http://env.test/lib.js",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "http://env.test/lib.js", cfg.Library.URL, "process environment wins over .env")
}

func TestLoad_ExplicitEnvFileMustExist(t *testing.T) {
	path := writeFile(t, "config.yaml", "")
	_, err := Load(LoadOptions{Path: path, EnvFile: filepath.Join(t.TempDir(), "nope.env"), LookupEnv: noEnv})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "mongo"
	cfg.Autosave.Quiet = 0
	cfg.Executor.Kind = ExecutorWebsocket
	cfg.Executor.URL = "http://localhost"
	cfg.Transfer.Kind = TransferMinIO

	errs := cfg.Validate()
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"store.driver", "autosave.quiet", "executor.url", "transfer.minio"}, fields)
	assert.Contains(t, errs.Error(), "store.driver")

	_, err := Load(opts(writeFile(t, "c.yaml", "store:\n  driver: mongo\n"), noEnv))
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		driver, dsn string
	}{
		{DriverSQLite, filepath.Join(dir, "nested", "s.db")},
		{DriverFile, filepath.Join(dir, "s.json")},
		{DriverMemory, ""},
	} {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := Default()
			cfg.Store = StoreConfig{Driver: tc.driver, DSN: tc.dsn}
			s, err := cfg.OpenStore()
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
}
