// Package storage persists the purge checkpoint, the whitelist and the
// inactive-friends report as JSON documents on disk.
//
// Every mutation reads the full document, applies the change and writes the
// full document back through a temporary file and an atomic rename, all under
// a mutex. Readers never observe a partially written file.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aatumaykin/twpurge/internal/logger"
)

// Records is an ordered JSON array of T stored in one file.
// Elements are unique by the key returned from keyFn.
type Records[T any] struct {
	mu       sync.Mutex
	filePath string
	keyFn    func(T) string
	logger   *logger.Logger
}

// NewRecords creates a store at filePath. The file is not touched until the first call.
func NewRecords[T any](filePath string, keyFn func(T) string, log *logger.Logger) *Records[T] {
	return &Records[T]{
		filePath: filePath,
		keyFn:    keyFn,
		logger:   log,
	}
}

// Path returns the backing file path.
func (r *Records[T]) Path() string {
	return r.filePath
}

// Load reads all records. A missing file is an empty store.
func (r *Records[T]) Load() ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Append adds items whose keys are not stored yet, keeping their order,
// and persists the result. It returns the items that were actually added.
func (r *Records[T]) Append(items ...T) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(current)+len(items))
	for _, item := range current {
		seen[r.keyFn(item)] = struct{}{}
	}

	var added []T
	for _, item := range items {
		key := r.keyFn(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		added = append(added, item)
	}

	if len(added) == 0 {
		return nil, nil
	}
	if err := r.save(append(current, added...)); err != nil {
		return nil, err
	}

	r.logger.Debug("records appended",
		logger.Field{Key: "file", Value: r.filePath},
		logger.Field{Key: "added", Value: len(added)})
	return added, nil
}

// Remove drops the record with the given key and persists the rest.
// It reports whether the key was present; an absent key leaves the file untouched.
func (r *Records[T]) Remove(key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return false, err
	}

	filtered := slices.DeleteFunc(current, func(item T) bool {
		return r.keyFn(item) == key
	})
	if len(filtered) == len(current) {
		r.logger.Debug("record not found for removal",
			logger.Field{Key: "file", Value: r.filePath},
			logger.Field{Key: "key", Value: key})
		return false, nil
	}

	if err := r.save(filtered); err != nil {
		return false, err
	}
	return true, nil
}

// Reset persists an empty array.
func (r *Records[T]) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save([]T{})
}

// Len returns the number of stored records.
func (r *Records[T]) Len() (int, error) {
	items, err := r.Load()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *Records[T]) load() ([]T, error) {
	data, err := os.ReadFile(r.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		r.logger.Error("failed to read storage file", err,
			logger.Field{Key: "file", Value: r.filePath})
		return nil, fmt.Errorf("read %s: %w", r.filePath, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		r.logger.Error("failed to unmarshal storage file", err,
			logger.Field{Key: "file", Value: r.filePath})
		return nil, fmt.Errorf("decode %s: %w", r.filePath, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Records[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.filePath, err)
	}
	if err := writeFileAtomic(r.filePath, data); err != nil {
		r.logger.Error("failed to save storage file", err,
			logger.Field{Key: "file", Value: r.filePath})
		return err
	}

	r.logger.Debug("storage saved",
		logger.Field{Key: "file", Value: r.filePath},
		logger.Field{Key: "count", Value: len(items)})
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory, syncs it
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}
