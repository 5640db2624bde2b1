package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/scriptrunner/internal/autosave"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
	"github.com/roach88/scriptrunner/internal/store"
)

// Store keys.
const (
	KeyScripts = "scripts"
	KeyState   = "state"
	KeyLibrary = "library"
)

// autosaveTimeout bounds the store write made by a debounced flush.
const autosaveTimeout = 10 * time.Second

// Executor runs code in a host page. Code injected by one Run shares a page.
type Executor interface {
	Inject(ctx context.Context, code string) error
}

// FileTransfer moves export blobs to and from named files.
type FileTransfer interface {
	Export(ctx context.Context, name string, blob []byte) error
	Import(ctx context.Context, name string) ([]byte, error)
}

// Deps are the collaborators of a Runner. Store is required; a nil
// Executor or Transfer makes the operations needing them fail.
type Deps struct {
	Store    store.Store
	Executor Executor
	Transfer FileTransfer
	IDs      script.IDGenerator
	Clock    autosave.Clock
	Logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*config)

type config struct {
	quiet time.Duration
}

// WithQuietPeriod sets the autosave quiet period.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *config) { c.quiet = d }
}

// Runner is the facade over the collection, the editor and the store.
// All methods are safe for concurrent use.
type Runner struct {
	store    store.Store
	executor Executor
	transfer FileTransfer
	ids      script.IDGenerator
	logger   *slog.Logger

	mu         sync.Mutex
	scripts    *script.Collection
	editor     *session.Editor
	autosave   *autosave.Debouncer
	autosaveEr error
}

// New returns a Runner in the first-run state: no scripts, editor closed.
// Call Initialize to load the persisted snapshot.
func New(deps Deps, opts ...Option) (*Runner, error) {
	if deps.Store == nil {
		return nil, errors.New("runner: store is required")
	}
	cfg := config{quiet: autosave.DefaultQuiet}
	for _, opt := range opts {
		opt(&cfg)
	}
	ids := deps.IDs
	if ids == nil {
		ids = script.UUIDv7Generator{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		store:    deps.Store,
		executor: deps.Executor,
		transfer: deps.Transfer,
		ids:      ids,
		logger:   logger,
		scripts:  script.NewCollection(ids),
		editor:   session.New(),
	}
	r.autosave = autosave.New(deps.Clock, cfg.quiet, r.flushAutosave)
	return r, nil
}

// Initialize loads the persisted snapshot, replacing in-memory state. An
// open editor comes back open with its unsaved draft. Absent keys mean a
// first run. An unreadable store or an undecodable snapshot is returned and
// leaves the Runner as it was.
func (r *Runner) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vals, err := r.store.Get(ctx, KeyScripts, KeyState)
	if err != nil {
		return r.fail("initialize", storeErr(err))
	}

	scripts := []script.Script{}
	if raw, ok := vals[KeyScripts]; ok {
		if err := json.Unmarshal(raw, &scripts); err != nil {
			return r.fail("initialize", fmt.Errorf("%w: scripts: %w", ErrCorruptState, err))
		}
	}

	state := session.New().State()
	if raw, ok := vals[KeyState]; ok {
		if err := json.Unmarshal(raw, &state); err != nil {
			return r.fail("initialize", fmt.Errorf("%w: state: %w", ErrCorruptState, err))
		}
	}

	collection := script.NewCollection(r.ids)
	if err := collection.Replace(scripts); err != nil {
		return r.fail("initialize", fmt.Errorf("%w: %w", ErrCorruptState, err))
	}
	if state.SelectedID != "" {
		if _, ok := collection.Find(state.SelectedID); !ok {
			return r.fail("initialize", fmt.Errorf("%w: editor selects missing script %q", ErrCorruptState, state.SelectedID))
		}
	}
	editor := session.New()
	if err := editor.Restore(state); err != nil {
		return r.fail("initialize", fmt.Errorf("%w: %w", ErrCorruptState, err))
	}

	r.autosave.Cancel()
	r.scripts = collection
	r.editor = editor
	r.logger.Debug("initialized", "scripts", collection.Len(), "mode", state.Mode.String())
	return nil
}

// snapshotLocked encodes the collection and the editor as store entries.
func (r *Runner) snapshotLocked() (map[string][]byte, error) {
	scripts, err := json.Marshal(r.scripts.All())
	if err != nil {
		return nil, fmt.Errorf("encode scripts: %w", err)
	}
	state, err := json.Marshal(r.editor.State())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return map[string][]byte{KeyScripts: scripts, KeyState: state}, nil
}

// persistLocked cancels any pending autosave and writes the full snapshot
// in one Set.
func (r *Runner) persistLocked(ctx context.Context) error {
	r.autosave.Cancel()
	return r.writeLocked(ctx)
}

func (r *Runner) writeLocked(ctx context.Context) error {
	entries, err := r.snapshotLocked()
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, entries); err != nil {
		return storeErr(err)
	}
	return nil
}

// flushAutosave is the debouncer callback. It writes the live state, not a
// copy taken when the edit happened.
func (r *Runner) flushAutosave() {
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.writeLocked(ctx)
	r.autosaveEr = err
	if err != nil {
		r.logger.Error("autosave failed", "error", err)
		return
	}
	r.logger.Debug("autosaved")
}

// Shutdown writes a pending autosave now and returns its error.
func (r *Runner) Shutdown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.autosave.Flush() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.autosaveEr
}

// AutosavePending reports whether draft edits are waiting to be written.
func (r *Runner) AutosavePending() bool {
	return r.autosave.Pending()
}

func storeErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// fail logs a boundary failure and returns it.
func (r *Runner) fail(op string, err error, attrs ...any) error {
	r.logger.Error(op+" failed", append(attrs, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}
