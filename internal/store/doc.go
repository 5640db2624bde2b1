// Package store provides the durable key-value boundary for scriptrunner.
//
// Every backend implements Store: a small get/set interface over named keys
// whose values are opaque byte slices. The runner persists its whole state as
// a handful of keys ("scripts", "state", "library") and relies on Set being
// atomic across all keys passed in one call.
//
// # Backends
//
//   - SQL: SQLite (github.com/mattn/go-sqlite3) or Postgres
//     (github.com/jackc/pgx/v5/stdlib) behind database/sql, one kv table.
//   - File: a single JSON document replaced atomically on every Set
//     (github.com/natefinch/atomic).
//   - Memory: process-local map, used by tests and the scenario harness.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// All backend failures wrap ErrUnavailable so callers can classify them with
// errors.Is regardless of the backend in use.
package store
