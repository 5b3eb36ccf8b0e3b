// Package sqlite keeps the current pipeline as a JSON document in a local
// SQLite database, for single-user desktop installs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meikuraledutech/pipeline"
)

const slot = "current"

// Store implements pipeline.Store on a SQLite file.
type Store struct {
	db *sql.DB
}

var _ pipeline.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.CreateSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSchema creates the document table if it doesn't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS pipeline_documents (
		slot     TEXT PRIMARY KEY,
		body     TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);`)
	return err
}

// DropSchema drops the document table.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS pipeline_documents`)
	return err
}

// PutDocument overwrites the current pipeline.
func (s *Store) PutDocument(ctx context.Context, doc *pipeline.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_documents (slot, body, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET body = excluded.body, saved_at = excluded.saved_at
	`, slot, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// GetDocument returns the current pipeline, or nil, nil if nothing has
// been saved. Bodies are decoded with pipeline.Decode, so documents
// written by older versions are accepted.
func (s *Store) GetDocument(ctx context.Context) (*pipeline.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM pipeline_documents WHERE slot = ?`, slot,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return pipeline.Decode([]byte(body))
}

// DeleteDocument empties the slot.
func (s *Store) DeleteDocument(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_documents WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
