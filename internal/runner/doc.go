// Package runner is the facade a user interface drives: it owns the script
// collection and the editor, persists both to a store, and runs scripts on
// an executor.
//
// Persistence model:
//
// The whole collection and the editor state are written together on every
// transition, as two keys in one Set call, so a reader never observes a
// saved script with the editor still marked open. Draft edits are not
// written immediately; they restart the autosave debouncer, whose flush
// writes the live state once edits go quiet. Every explicit write cancels a
// pending autosave first, and closing the editor cancels it without
// flushing.
//
// Concurrency:
//
// One mutex serializes every operation and the autosave flush. There is
// exactly one writer per store by construction; writes are last-writer-wins
// over the full snapshot.
package runner
