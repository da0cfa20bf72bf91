package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aatumaykin/twpurge/internal/logger"
)

// Whitelist is the persistent set of tweet IDs that must never be deleted.
// The file is a JSON array of strings. Older files holding bare numbers are
// read without loss of precision and rewritten as strings on the next Add.
type Whitelist struct {
	mu       sync.RWMutex
	filePath string
	ids      []string
	set      map[string]struct{}
	logger   *logger.Logger
}

// LoadWhitelist reads the whitelist at filePath. A missing file is an empty whitelist.
func LoadWhitelist(filePath string, log *logger.Logger) (*Whitelist, error) {
	w := &Whitelist{
		filePath: filePath,
		set:      make(map[string]struct{}),
		logger:   log,
	}

	ids, err := readWhitelist(filePath)
	if err != nil {
		log.Error("failed to load whitelist", err, logger.Field{Key: "file", Value: filePath})
		return nil, err
	}
	for _, id := range ids {
		if _, ok := w.set[id]; ok {
			continue
		}
		w.set[id] = struct{}{}
		w.ids = append(w.ids, id)
	}

	log.Debug("whitelist loaded",
		logger.Field{Key: "file", Value: filePath},
		logger.Field{Key: "count", Value: len(w.ids)})
	return w, nil
}

// Contains reports whether id is exempt from deletion. A nil whitelist contains nothing.
func (w *Whitelist) Contains(id string) bool {
	if w == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.set[id]
	return ok
}

// Add whitelists id and persists the file before returning.
// Adding a present id is a no-op.
func (w *Whitelist) Add(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.set[id]; ok {
		return nil
	}

	// Merge with the file so ids written by another run are kept.
	onDisk, err := readWhitelist(w.filePath)
	if err != nil {
		return err
	}
	for _, existing := range onDisk {
		if _, ok := w.set[existing]; !ok {
			w.set[existing] = struct{}{}
			w.ids = append(w.ids, existing)
		}
	}

	ids := append(append([]string{}, w.ids...), id)
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode whitelist: %w", err)
	}
	if err := writeFileAtomic(w.filePath, data); err != nil {
		w.logger.Error("failed to save whitelist", err, logger.Field{Key: "file", Value: w.filePath})
		return err
	}

	w.ids = ids
	w.set[id] = struct{}{}
	w.logger.Info("tweet whitelisted", logger.Field{Key: "tweet_id", Value: id})
	return nil
}

// Path returns the backing file path.
func (w *Whitelist) Path() string {
	return w.filePath
}

// IDs returns a copy of the whitelisted ids in file order.
func (w *Whitelist) IDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string{}, w.ids...)
}

// Len returns the number of whitelisted ids.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.ids)
}

func readWhitelist(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}

	ids := make([]string, 0, len(raw))
	for i, v := range raw {
		switch id := v.(type) {
		case string:
			ids = append(ids, id)
		case json.Number:
			ids = append(ids, id.String())
		default:
			return nil, fmt.Errorf("decode %s: entry %d is %T, want string", filePath, i, v)
		}
	}
	return ids, nil
}
