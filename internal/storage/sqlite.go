package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/growctl/internal/infrastructure/database"
	"github.com/nerrad567/growctl/migrations"
)

const sqliteOpTimeout = 5 * time.Second

// SQLiteStore keeps each blob as a row of the blobs table.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore applies the schema migrations and returns a store backed by db.
func NewSQLiteStore(ctx context.Context, db *database.DB) (*SQLiteStore, error) {
	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
		return nil, fmt.Errorf("migrating storage schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Read returns the blob stored at path.
func (s *SQLiteStore) Read(path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE path = ?", path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Write upserts the blob at path.
func (s *SQLiteStore) Write(path string, data []byte) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (path, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, path, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Remove deletes the row at path.
func (s *SQLiteStore) Remove(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE path = ?", path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a row exists at path.
func (s *SQLiteStore) Exists(path string) bool {
	if validatePath(path) != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM blobs WHERE path = ?", path).Scan(&one)
	return err == nil
}
