// Package config loads scriptrunner settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. the YAML config file (--config, or the user config dir)
//  3. SCRIPTRUNNER_* variables, from the environment or a .env file
//  4. command-line flags, applied by the caller
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scriptrunner/internal/autosave"
	"github.com/roach88/scriptrunner/internal/executor"
	"github.com/roach88/scriptrunner/internal/library"
	"github.com/roach88/scriptrunner/internal/store"
	"github.com/roach88/scriptrunner/internal/transfer"
)

// Store drivers accepted in store.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// Executor kinds accepted in executor.kind.
const (
	ExecutorGoja      = "goja"
	ExecutorWebsocket = "websocket"
)

// Transfer kinds accepted in transfer.kind.
const (
	TransferFile  = "file"
	TransferMinIO = "minio"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCRIPTRUNNER_"

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Executor ExecutorConfig `yaml:"executor"`
	Library  LibraryConfig  `yaml:"library"`
	Transfer TransferConfig `yaml:"transfer"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AutosaveConfig struct {
	Quiet time.Duration `yaml:"quiet"`
}

type ExecutorConfig struct {
	Kind    string        `yaml:"kind"`
	Timeout time.Duration `yaml:"timeout"`
	// URL of the remote host, for the websocket kind.
	URL string `yaml:"url"`
}

type LibraryConfig struct {
	URL string `yaml:"url"`
}

type TransferConfig struct {
	Kind  string               `yaml:"kind"`
	Dir   string               `yaml:"dir"`
	MinIO transfer.MinIOConfig `yaml:"minio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    filepath.Join(dataDir(), "scriptrunner.db"),
		},
		Autosave: AutosaveConfig{Quiet: autosave.DefaultQuiet},
		Executor: ExecutorConfig{Kind: ExecutorGoja, Timeout: executor.DefaultTimeout},
		Library:  LibraryConfig{URL: library.DefaultURL},
		Transfer: TransferConfig{
			Kind:  TransferFile,
			Dir:   ".",
			MinIO: transfer.MinIOConfig{Region: "us-east-1"},
		},
	}
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "scriptrunner")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "scriptrunner")
	}
	return "."
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scriptrunner", "config.yaml")
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path of the YAML file. Empty means DefaultPath, which may be absent.
	Path string
	// EnvFile is a .env file. Empty means ".env" in the working directory,
	// which may be absent.
	EnvFile string
	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration from defaults, file and environment.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, required := opts.Path, true
	if path == "" {
		path, required = DefaultPath(), false
	}
	if path != "" {
		if err := cfg.mergeFile(path, required); err != nil {
			return nil, err
		}
	}

	env, err := newEnv(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errs
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := c.decode(data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// decode merges YAML over c. Unknown keys are errors.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type env func(string) (string, bool)

// newEnv layers the process environment over the .env file.
func newEnv(opts LoadOptions) (env, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	file, required := opts.EnvFile, true
	if file == "" {
		file, required = ".env", false
	}
	dotenv, err := godotenv.Read(file)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			dotenv = nil
		} else {
			return nil, fmt.Errorf("read env file %s: %w", file, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func (c *Config) applyEnv(lookup env) error {
	strs := map[string]*string{
		"STORE_DRIVER":     &c.Store.Driver,
		"STORE_DSN":        &c.Store.DSN,
		"EXECUTOR_KIND":    &c.Executor.Kind,
		"EXECUTOR_URL":     &c.Executor.URL,
		"LIBRARY_URL":      &c.Library.URL,
		"TRANSFER_KIND":    &c.Transfer.Kind,
		"TRANSFER_DIR":     &c.Transfer.Dir,
		"MINIO_ENDPOINT":   &c.Transfer.MinIO.Endpoint,
		"MINIO_ACCESS_KEY": &c.Transfer.MinIO.AccessKey,
		"MINIO_SECRET_KEY": &c.Transfer.MinIO.SecretKey,
		"MINIO_BUCKET":     &c.Transfer.MinIO.Bucket,
		"MINIO_REGION":     &c.Transfer.MinIO.Region,
		"MINIO_PREFIX":     &c.Transfer.MinIO.Prefix,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"AUTOSAVE_QUIET":   &c.Autosave.Quiet,
		"EXECUTOR_TIMEOUT": &c.Executor.Timeout,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "MINIO_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMINIO_USE_SSL: %w", EnvPrefix, err)
		}
		c.Transfer.MinIO.UseSSL = b
	}
	return nil
}

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres, DriverFile:
		if strings.TrimSpace(c.Store.DSN) == "" {
			add("store.dsn", c.Store.DSN, "required for driver "+c.Store.Driver)
		}
	case DriverMemory:
	default:
		add("store.driver", c.Store.Driver, "must be sqlite, postgres, file or memory")
	}

	if c.Autosave.Quiet <= 0 {
		add("autosave.quiet", c.Autosave.Quiet, "must be positive")
	}

	switch c.Executor.Kind {
	case ExecutorGoja:
	case ExecutorWebsocket:
		if !strings.HasPrefix(c.Executor.URL, "ws://") && !strings.HasPrefix(c.Executor.URL, "wss://") {
			add("executor.url", c.Executor.URL, "must be a ws:// or wss:// URL")
		}
	default:
		add("executor.kind", c.Executor.Kind, "must be goja or websocket")
	}
	if c.Executor.Timeout < 0 {
		add("executor.timeout", c.Executor.Timeout, "must not be negative")
	}

	switch c.Transfer.Kind {
	case TransferFile:
	case TransferMinIO:
		if err := c.Transfer.MinIO.Validate(); err != nil {
			add("transfer.minio", "", err.Error())
		}
	default:
		add("transfer.kind", c.Transfer.Kind, "must be file or minio")
	}

	return errs
}

// OpenStore opens the configured store backend.
func (c *Config) OpenStore() (store.Store, error) {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.Store.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		return store.Open(store.DriverSQLite, c.Store.DSN)
	case DriverPostgres:
		return store.Open(store.DriverPostgres, c.Store.DSN)
	case DriverFile:
		return store.Open(store.BackendFile, c.Store.DSN)
	case DriverMemory:
		return store.Open(store.BackendMemory, "")
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}
