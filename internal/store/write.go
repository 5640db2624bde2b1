package store

import (
	"context"
	"fmt"
	"slices"
)

// Set upserts every entry inside one transaction.
// Keys are written in sorted order so concurrent writers touching the same
// keys acquire row locks in a consistent order.
func (s *SQLStore) Set(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set: begin tx: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() // No-op if committed

	upsert := fmt.Sprintf(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))

	updatedAt := s.now().UnixMilli()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		value := entries[k]
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.ExecContext(ctx, upsert, k, value, updatedAt); err != nil {
			return fmt.Errorf("set %q: %w: %w", k, ErrUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set: commit: %w: %w", ErrUnavailable, err)
	}

	return nil
}
