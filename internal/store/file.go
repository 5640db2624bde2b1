package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// FileStore keeps every key in one JSON document on disk.
// Each Set rewrites the whole document via atomic rename, so a crash leaves
// either the old or the new document, never a torn one.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// OpenFile returns a FileStore persisting to path. The parent directory is
// created if missing; the file itself is created on the first Set.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open file store: %w: %w", ErrUnavailable, err)
	}
	return &FileStore{path: path}, nil
}

// Get implements Store.
func (f *FileStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// Set implements Store.
func (f *FileStore) Set(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range entries {
		doc[k] = v
	}

	// []byte values encode as base64, so payloads need not be JSON themselves.
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("set: encode: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("set: write %s: %w: %w", f.path, ErrUnavailable, err)
	}
	return nil
}

// Close implements Store. FileStore holds no open handles.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) load() (map[string][]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", f.path, ErrUnavailable, err)
	}

	doc := map[string][]byte{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", f.path, ErrUnavailable, err)
	}
	return doc, nil
}
