package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"financewatch/internal/store/migrations"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the durable key-value storage the history is persisted in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats describes the contents of a KV backend
type Stats struct {
	Backend     string    `json:"backend"`
	Entries     int       `json:"entries"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	Location    string    `json:"location,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// DBFileName is the SQLite file created inside the data directory.
const DBFileName = "financewatch.db"

// Store represents the SQLite-based key-value store
type Store struct {
	db   *sql.DB
	path string
}

var _ KV = (*Store)(nil)

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize applies the schema migrations
func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT OR REPLACE INTO kv (key, value, updated_at)
	VALUES (?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Stats returns statistics about the store
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: "sqlite", Location: s.path}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	// Get file size
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// Clear removes every key and reclaims space
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return fmt.Errorf("failed to clear kv table: %w", err)
	}

	// Vacuum to reclaim space
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}
