// internal/store/store.go
//
// Content store:  remembers strings already seen so callers can skip
// duplicates (e.g. notifications already sent).
//
// Context
// -------
// One table, `texts`, created on first use.  Insert is check-then-insert and
// reports whether a row was added.  The store is deliberately thin; anything
// more belongs in a real repository layer.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS texts (
	id      BIGINT AUTO_INCREMENT PRIMARY KEY,
	content TEXT NOT NULL
)`

// Store wraps a sqlx handle.
type Store struct {
	db  *sqlx.DB
	log *logger.Logger
}

// New ensures the schema exists.
func New(ctx context.Context, db *sqlx.DB, log *logger.Logger) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Exists reports whether content has been stored.
func (s *Store) Exists(ctx context.Context, content string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM texts WHERE content = ? LIMIT 1`, content)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("store: exists: %w", err)
	}
	return true, nil
}

// Insert stores content unless it is already present.
func (s *Store) Insert(ctx context.Context, content string) (bool, error) {
	ok, err := s.Exists(ctx, content)
	if err != nil || ok {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO texts (content) VALUES (?)`, content); err != nil {
		return false, fmt.Errorf("store: insert: %w", err)
	}
	s.log.Debug("content stored", "bytes", len(content))
	return true, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }
