package store

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the few SQL differences between SQLite and Postgres.
type dialect struct {
	name   string
	schema string
	// numbered reports whether placeholders are $1, $2 (Postgres) rather than ?.
	numbered bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{name: DriverSQLite, schema: sqliteSchemaSQL}, nil
	case DriverPostgres:
		return dialect{name: DriverPostgres, schema: postgresSchemaSQL, numbered: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q: must be %q or %q", driver, DriverSQLite, DriverPostgres)
	}
}

// placeholder returns the n-th (1-based) bind placeholder.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// placeholders returns a comma-separated list of count placeholders starting at start.
func (d dialect) placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}
