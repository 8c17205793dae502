package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	path TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	file_size INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at DESC);
`

// SQLiteStore keeps the document history in an embedded SQLite database.
// The driver is pure Go, so the binary stays cgo-free.
type SQLiteStore struct {
	db  *sql.DB
	dir string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// writes documents into dir.
func NewSQLiteStore(dbPath, dir string) (*SQLiteStore, error) {
	if dir == "" {
		dir = "research_docs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, dir: dir}, nil
}

func (s *SQLiteStore) SaveText(ctx context.Context, text, filename, category, country string) (string, error) {
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

func (s *SQLiteStore) Add(ctx context.Context, e Entry) (int, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (filename, path, source_url, category, country, created_at, file_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Filename, e.Path, e.SourceURL, e.Category, e.Country, e.CreatedAt, e.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return int(id), nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, path, source_url, category, country, created_at, file_size
		 FROM documents ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Filename, &e.Path, &e.SourceURL,
			&e.Category, &e.Country, &e.CreatedAt, &e.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id int) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, path, source_url, category, country, created_at, file_size
		 FROM documents WHERE id = ?`, id).
		Scan(&e.ID, &e.Filename, &e.Path, &e.SourceURL,
			&e.Category, &e.Country, &e.CreatedAt, &e.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get document: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.Path != "" {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document file: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
