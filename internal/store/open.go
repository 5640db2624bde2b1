package store

import "fmt"

// Backend names accepted by Open in addition to the SQL drivers.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open returns the Store for a configured backend.
//
//	sqlite3  dsn is a database path (":memory:" for a throwaway database)
//	pgx      dsn is a Postgres connection URL
//	file     dsn is the path of the JSON document
//	memory   dsn is ignored
func Open(backend, dsn string) (Store, error) {
	switch backend {
	case DriverSQLite, DriverPostgres:
		return OpenSQL(backend, dsn)
	case BackendFile:
		return OpenFile(dsn)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
