// Package autosave coalesces high-frequency change signals into infrequent
// persistence writes.
//
// A Debouncer implements a trailing debounce: every NotifyChanged restarts
// the quiet period, and the flush callback runs once the quiet period elapses
// with no further notifications. Intermediate states are never written; the
// callback reads live state when it fires rather than a copy taken when the
// change was scheduled.
//
// At most one timer is ever pending. Starting a new one stops the previous
// one, and a generation counter makes a superseded timer that already fired
// concurrently a no-op.
//
// Time is abstracted behind Clock so tests can drive timers deterministically
// (see testutil.ManualClock).
package autosave
