package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/scriptrunner/internal/store"
)

// RecordingStore wraps a store.Store, records every Set call and can be told
// to fail Get or Set with store.ErrUnavailable.
type RecordingStore struct {
	store.Store

	mu      sync.Mutex
	sets    [][]string
	failGet bool
	failSet bool
}

// NewRecordingStore wraps inner; a nil inner uses a fresh store.MemoryStore.
func NewRecordingStore(inner store.Store) *RecordingStore {
	if inner == nil {
		inner = store.NewMemory()
	}
	return &RecordingStore{Store: inner}
}

// FailGet makes subsequent Get calls fail (or succeed again).
func (r *RecordingStore) FailGet(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failGet = fail
}

// FailSet makes subsequent Set calls fail (or succeed again).
func (r *RecordingStore) FailSet(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSet = fail
}

// Get implements store.Store.
func (r *RecordingStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	r.mu.Lock()
	fail := r.failGet
	r.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("get %v: %w", keys, store.ErrUnavailable)
	}
	return r.Store.Get(ctx, keys...)
}

// Set implements store.Store. Failed Sets are not recorded.
func (r *RecordingStore) Set(ctx context.Context, entries map[string][]byte) error {
	r.mu.Lock()
	fail := r.failSet
	r.mu.Unlock()

	if fail {
		return fmt.Errorf("set: %w", store.ErrUnavailable)
	}
	if err := r.Store.Set(ctx, entries); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	r.mu.Lock()
	r.sets = append(r.sets, keys)
	r.mu.Unlock()
	return nil
}

// Sets returns the sorted key lists of every successful Set, oldest first.
func (r *RecordingStore) Sets() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sets)
}

// SetCount returns the number of successful Set calls.
func (r *RecordingStore) SetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// ResetSets forgets recorded Set calls.
func (r *RecordingStore) ResetSets() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = nil
}
