package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates "script-0001", "script-0002", ... for deterministic
// ids in tests and golden files.
//
// Thread-safety: SequenceIDs is safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix defaults to "script".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "script"
	}
	return &SequenceIDs{prefix: prefix}
}

// NewID implements script.IDGenerator.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// FixedIDs returns predetermined ids in order, including repeats, so tests
// can force id collisions.
//
// Example:
//
//	gen := NewFixedIDs("a", "a", "b")
//	gen.NewID() // "a"
//	gen.NewID() // "a"
//	gen.NewID() // "b"
//	gen.NewID() // panic: all ids exhausted
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewID implements script.IDGenerator.
//
// Panics if all ids have been consumed. This is a fail-fast approach
// to catch test misconfiguration.
func (g *FixedIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
