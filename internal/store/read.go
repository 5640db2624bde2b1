package store

import (
	"context"
	"fmt"
)

// Get returns the values stored under keys. Keys that were never written are
// absent from the result. Duplicate keys are queried once.
func (s *SQLStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return result, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv WHERE key IN ("+s.dialect.placeholders(1, len(keys))+") ORDER BY key",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get %v: %w: %w", keys, ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("get %v: scan: %w: %w", keys, ErrUnavailable, err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get %v: iterate: %w: %w", keys, ErrUnavailable, err)
	}

	return result, nil
}

// uniqueKeys drops duplicates while keeping first-seen order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
