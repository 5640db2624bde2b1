package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single injection.
const DefaultTimeout = 30 * time.Second

// Goja runs code in one embedded VM that lives as long as the executor.
type Goja struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timeout time.Duration
	out     io.Writer
	logger  *slog.Logger
}

// GojaOption configures a Goja executor.
type GojaOption func(*Goja)

// WithTimeout sets the per-injection timeout. Zero disables it; the
// caller's context still applies.
func WithTimeout(d time.Duration) GojaOption {
	return func(g *Goja) { g.timeout = d }
}

// WithOutput sets where console output goes. Defaults to stdout.
func WithOutput(w io.Writer) GojaOption {
	return func(g *Goja) { g.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GojaOption {
	return func(g *Goja) { g.logger = l }
}

// NewGoja returns a Goja executor with a fresh VM. The global object is
// also reachable as window, and console.log/info/warn/error print to the
// configured output.
func NewGoja(opts ...GojaOption) *Goja {
	g := &Goja{
		vm:      goja.New(),
		timeout: DefaultTimeout,
		out:     os.Stdout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	_ = g.vm.Set("window", g.vm.GlobalObject())

	console := g.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		_ = console.Set(level, g.consoleFunc(level))
	}
	_ = g.vm.Set("console", console)
	return g
}

func (g *Goja) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		line := strings.Join(parts, " ")
		if level == "warn" || level == "error" {
			line = level + ": " + line
		}
		fmt.Fprintln(g.out, line)
		return goja.Undefined()
	}
}

// Inject runs code in the VM. A script that outlives the timeout or the
// context is interrupted; the VM stays usable afterwards.
func (g *Goja) Inject(ctx context.Context, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := g.vm.RunString(code)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrScript, err)
		}
		return nil
	case <-ctx.Done():
		g.vm.Interrupt("timeout")
		<-done
		g.vm.ClearInterrupt()
		g.logger.Debug("script interrupted", "error", ctx.Err())
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// Close releases the VM. Goja holds no external resources.
func (g *Goja) Close() error {
	return nil
}
