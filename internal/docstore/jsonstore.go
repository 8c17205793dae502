package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const historyFile = "history.json"

// JSONStore keeps the document history in a single JSON file next to the
// documents. It is the default backend: no external service, easy to
// inspect, good enough for one workstation.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore creates the directory if needed and returns a store rooted
// there.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		dir = "research_docs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// Dir returns the directory documents are written to.
func (s *JSONStore) Dir() string { return s.dir }

func (s *JSONStore) SaveText(ctx context.Context, text, filename, category, country string) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	_, err := s.Add(ctx, Entry{
		Filename:  filepath.Base(filename),
		Path:      path,
		Category:  category,
		Country:   country,
		CreatedAt: time.Now().UTC(),
		FileSize:  int64(len(text)),
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *JSONStore) Add(ctx context.Context, e Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}

	// IDs stay monotonic even after deletions: max existing id plus one,
	// never a reused slot.
	maxID := 0
	for _, existing := range entries {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	e.ID = maxID + 1
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	entries = append(entries, e)
	if err := s.save(entries); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *JSONStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})

	if offset >= len(entries) {
		return []Entry{}, nil
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *JSONStore) Get(ctx context.Context, id int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Delete removes the history entry and the document file. A missing file is
// not an error; the history row is authoritative.
func (s *JSONStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, e := range entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	if path := entries[idx].Path; path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document file: %w", err)
		}
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	return s.save(entries)
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, historyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return entries, nil
}

func (s *JSONStore) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	tmp := filepath.Join(s.dir, historyFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return os.Rename(tmp, filepath.Join(s.dir, historyFile))
}
