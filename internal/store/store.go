package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// document is the persisted shape of the registry. Entries are stored as an
// ordered array so insertion order survives a restart; JSON objects would
// lose it.
type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

const documentVersion = 1

// Store is the mutex-guarded backend registry. All reads return copies;
// callers never observe a half-updated snapshot.
type Store struct {
	path    string
	entries map[string]Entry
	order   []string
	log     zerolog.Logger
	mu      sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open loads the registry from path. A missing file yields an empty store.
// An unreadable or corrupt file triggers the degraded recovery path: the
// store is rebuilt from the marker comments in the proxy configuration at
// proxyConfigPath (empty string disables recovery). Neither case is a hard
// failure; both are logged and startup continues.
func Open(path, proxyConfigPath string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		entries: make(map[string]Entry),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.recover(proxyConfigPath, "store file does not exist")
		return s, nil
	case err != nil:
		s.recover(proxyConfigPath, "store file is unreadable")
		s.log.Warn().Err(err).Str("path", path).Msg("backend store unreadable")
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("backend store corrupt")
		s.recover(proxyConfigPath, "store file is corrupt")
		return s, nil
	}

	for _, e := range doc.Entries {
		if _, dup := s.entries[e.Instance]; dup {
			continue
		}
		s.entries[e.Instance] = e
		s.order = append(s.order, e.Instance)
	}

	return s, nil
}

// recover rebuilds the registry from the last generated proxy configuration.
func (s *Store) recover(proxyConfigPath, reason string) {
	if proxyConfigPath == "" {
		return
	}

	entries, err := RebuildFromConfig(proxyConfigPath)
	if err != nil {
		s.log.Warn().Err(err).
			Str("config", proxyConfigPath).
			Msg("backend store rebuild from proxy config failed")
		return
	}
	if len(entries) == 0 {
		return
	}

	for _, e := range entries {
		if _, dup := s.entries[e.Instance]; dup {
			continue
		}
		s.entries[e.Instance] = e
		s.order = append(s.order, e.Instance)
	}

	s.log.Warn().
		Str("reason", reason).
		Str("config", proxyConfigPath).
		Int("entries", len(entries)).
		Msg("backend store rebuilt from generated proxy config")
}

// Get returns the entry for instance, if present.
func (s *Store) Get(instance string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[instance]
	return e, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// All returns a snapshot of every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out
}

// Upsert inserts or replaces the entry keyed by its instance name and
// persists the document. A replaced entry keeps its insertion position.
func (s *Store) Upsert(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.Instance]; !exists {
		s.order = append(s.order, e.Instance)
	}
	s.entries[e.Instance] = e

	return s.persistLocked()
}

// Remove deletes the entry for instance and persists the document.
// Removing an absent instance is a no-op.
func (s *Store) Remove(instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[instance]; !exists {
		return nil
	}
	delete(s.entries, instance)
	for i, name := range s.order {
		if name == instance {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return s.persistLocked()
}

// persistLocked writes the document atomically: marshal to a temp file in
// the same directory, fsync, then rename over the live path. A crash
// mid-write never leaves a partial document behind.
func (s *Store) persistLocked() error {
	doc := document{Version: documentVersion}
	for _, name := range s.order {
		doc.Entries = append(doc.Entries, s.entries[name])
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: rename into place: %w", err)
	}

	return nil
}
