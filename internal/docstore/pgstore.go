package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	path TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at DESC);
`

// PGStore keeps the document history in Postgres, for deployments where
// several workers share one history.
type PGStore struct {
	pool *pgxpool.Pool
	dir  string
}

// NewPGStore connects with the given DSN, ensures the schema, and writes
// documents into dir.
func NewPGStore(ctx context.Context, dsn, dir string) (*PGStore, error) {
	if dir == "" {
		dir = "research_docs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PGStore{pool: pool, dir: dir}, nil
}

func (s *PGStore) SaveText(ctx context.Context, text, filename, category, country string) (string, error) {
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

func (s *PGStore) Add(ctx context.Context, e Entry) (int, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var id int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (filename, path, source_url, category, country, created_at, file_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.Filename, e.Path, e.SourceURL, e.Category, e.Country, e.CreatedAt, e.FileSize).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, path, source_url, category, country, created_at, file_size
		 FROM documents ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
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

func (s *PGStore) Get(ctx context.Context, id int) (Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, path, source_url, category, country, created_at, file_size
		 FROM documents WHERE id = $1`, id).
		Scan(&e.ID, &e.Filename, &e.Path, &e.SourceURL,
			&e.Category, &e.Country, &e.CreatedAt, &e.FileSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get document: %w", err)
	}
	return e, nil
}

func (s *PGStore) Delete(ctx context.Context, id int) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.Path != "" {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document file: %w", err)
		}
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
