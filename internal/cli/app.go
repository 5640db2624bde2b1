package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptrunner/internal/config"
	"github.com/roach88/scriptrunner/internal/executor"
	"github.com/roach88/scriptrunner/internal/runner"
	"github.com/roach88/scriptrunner/internal/store"
	"github.com/roach88/scriptrunner/internal/transfer"
)

// app is a Runner opened for one command, with what must be released
// afterwards.
type app struct {
	cfg     *config.Config
	runner  *runner.Runner
	store   store.Store
	closers []io.Closer
	logger  *slog.Logger
	out     *OutputFormatter
}

type appOptions struct {
	// transfer builds the configured FileTransfer. Only export and import
	// need it; MinIO checks its bucket on creation.
	transfer bool
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads the config file and environment, then applies the
// global flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:      o.ConfigPath,
		EnvFile:   o.EnvFile,
		LookupEnv: o.LookupEnv,
	})
	if err != nil {
		return nil, err
	}
	if o.Driver != "" {
		cfg.Store.Driver = o.Driver
	}
	if o.DB != "" {
		cfg.Store.DSN = o.DB
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errs
	}
	return cfg, nil
}

// openApp loads the configuration, opens the store, builds the executor
// (and the transfer if asked) and initializes a Runner. Failures are
// reported through the formatter and returned as ExitErrors.
func openApp(cmd *cobra.Command, opts *RootOptions, ao appOptions) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	logger := opts.log()

	cfg, err := opts.loadConfig()
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := cfg.OpenStore()
	if err != nil {
		return nil, out.Fail("failed to open store", err)
	}
	a := &app{cfg: cfg, store: st, logger: logger, out: out}
	out.VerboseLog("store: %s %s", cfg.Store.Driver, cfg.Store.DSN)

	exec, closer := newExecutor(cfg, cmd.OutOrStdout(), logger)
	a.closers = append(a.closers, closer)

	deps := runner.Deps{Store: st, Executor: exec, Logger: logger}
	if ao.transfer {
		ft, err := newTransfer(ctx, cfg)
		if err != nil {
			a.release()
			return nil, out.Fail("failed to open transfer", err)
		}
		deps.Transfer = ft
	}

	r, err := runner.New(deps, runner.WithQuietPeriod(cfg.Autosave.Quiet))
	if err != nil {
		a.release()
		return nil, WrapExitError(ExitCommandError, "failed to create runner", err)
	}
	if err := r.Initialize(ctx); err != nil {
		a.release()
		return nil, out.Fail("failed to load state", err)
	}
	a.runner = r
	return a, nil
}

func newExecutor(cfg *config.Config, w io.Writer, logger *slog.Logger) (runner.Executor, io.Closer) {
	switch cfg.Executor.Kind {
	case config.ExecutorWebsocket:
		remote := executor.NewRemote(cfg.Executor.URL, cfg.Executor.Timeout, logger)
		return remote, remote
	default:
		vm := executor.NewGoja(
			executor.WithTimeout(cfg.Executor.Timeout),
			executor.WithOutput(w),
			executor.WithLogger(logger),
		)
		return vm, vm
	}
}

func newTransfer(ctx context.Context, cfg *config.Config) (runner.FileTransfer, error) {
	switch cfg.Transfer.Kind {
	case config.TransferMinIO:
		m, err := transfer.NewMinIO(cfg.Transfer.MinIO)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return transfer.NewLocalDir(cfg.Transfer.Dir)
	}
}

// Close flushes a pending autosave and releases the store and executor.
// The autosave error, if any, is returned.
func (a *app) Close(ctx context.Context) error {
	var err error
	if a.runner != nil {
		if ferr := a.runner.Shutdown(ctx); ferr != nil {
			err = fmt.Errorf("flush autosave: %w", ferr)
		}
	}
	return errors.Join(err, a.release())
}

func (a *app) release() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing store", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withApp opens the app, runs fn and closes the app. A Close failure is
// reported only if fn succeeded.
func withApp(cmd *cobra.Command, opts *RootOptions, ao appOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts, ao)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runErr := fn(ctx, a)
	closeErr := a.Close(ctx)
	if runErr != nil {
		if closeErr != nil {
			a.logger.Error("error closing", "error", closeErr)
		}
		return runErr
	}
	if closeErr != nil {
		return a.out.Fail("failed to close", closeErr)
	}
	return nil
}
