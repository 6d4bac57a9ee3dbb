package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// FileStore keeps the history map in memory and persists it to a single JSON
// file with an atomic write-and-rename on every mutation. It serializes
// in-process access with a mutex but offers no cross-process locking: runs
// must be sequential, single-writer batches. A concurrent-safe backend can
// replace it behind the Store interface.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// NewFileStore loads (or initializes) the history file at path. A missing or
// unreadable file starts empty rather than failing: history is advisory data.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, eris.New("history: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "history: create dir for %s", path)
	}

	s := &FileStore{path: path, entries: make(map[string]Entry)}
	data, err := os.ReadFile(path)
	if err == nil {
		// Corrupt history resets to empty; it rebuilds on the next runs.
		_ = json.Unmarshal(data, &s.entries)
		if s.entries == nil {
			s.entries = make(map[string]Entry)
		}
	}
	return s, nil
}

// Get returns the entry for key.
func (s *FileStore) Get(key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

// Put replaces the entry for key and flushes to disk.
func (s *FileStore) Put(key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return s.flushLocked()
}

// Update applies fn to the current entry (or the zero Entry when absent)
// under the store lock, stores the result, and flushes.
func (s *FileStore) Update(key string, fn func(e Entry, found bool) Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[key]
	s.entries[key] = fn(cur, ok)
	return s.flushLocked()
}

// Len returns the number of tracked keywords.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the full history map.
func (s *FileStore) Entries() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Close flushes any pending state.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "history: marshal")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "history: write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrapf(err, "history: rename %s", s.path)
	}
	return nil
}
