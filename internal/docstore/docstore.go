// Package docstore persists research documents and their history. Research
// text goes to disk as plain files; the history (one row per document) goes
// to a backend chosen by configuration: a JSON file for zero-setup use, an
// embedded SQLite database, or Postgres for shared deployments.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id has no history entry.
var ErrNotFound = errors.New("document not found")

// Entry is one saved research document.
type Entry struct {
	ID        int       `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	SourceURL string    `json:"source_url,omitempty"`
	Category  string    `json:"category,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	FileSize  int64     `json:"file_size"`
}

// Store is the document history backend.
type Store interface {
	// SaveText writes the text as a file and records a history entry.
	// It returns the path of the written file.
	SaveText(ctx context.Context, text, filename, category, country string) (string, error)
	// Add records a history entry for a file that already exists.
	Add(ctx context.Context, e Entry) (int, error)
	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]Entry, error)
	Get(ctx context.Context, id int) (Entry, error)
	Delete(ctx context.Context, id int) error
	Close() error
}
