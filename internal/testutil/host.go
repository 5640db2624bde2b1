package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// RecordingExecutor records injected code in order and can fail on demand.
type RecordingExecutor struct {
	mu       sync.Mutex
	injected []string
	err      error
}

// NewRecordingExecutor returns an executor that accepts everything.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{}
}

// FailWith makes subsequent injections return err (nil to succeed again).
func (e *RecordingExecutor) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Inject implements runner.Executor.
func (e *RecordingExecutor) Inject(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	e.injected = append(e.injected, code)
	return nil
}

// Injected returns the code injected so far, oldest first.
func (e *RecordingExecutor) Injected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.injected)
}

// MemoryTransfer is an in-memory runner.FileTransfer keyed by name.
type MemoryTransfer struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemoryTransfer returns an empty transfer.
func NewMemoryTransfer() *MemoryTransfer {
	return &MemoryTransfer{files: make(map[string][]byte)}
}

// Export implements runner.FileTransfer.
func (m *MemoryTransfer) Export(ctx context.Context, name string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = slices.Clone(blob)
	return nil
}

// Import implements runner.FileTransfer.
func (m *MemoryTransfer) Import(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("import %q: no such file", name)
	}
	return slices.Clone(blob), nil
}

// Put stores blob under name, as if a user had picked that file.
func (m *MemoryTransfer) Put(name string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = slices.Clone(blob)
}

// File returns the blob stored under name.
func (m *MemoryTransfer) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.files[name]
	return slices.Clone(blob), ok
}
