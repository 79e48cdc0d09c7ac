package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pawnshop-service/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// Fixed blob keys of the persisted collections
const (
	KeyInventory   = "inventory.json"
	KeyPriceAlerts = "price_alerts.json"
)

// ErrNotFound is returned when a key has never been saved
var ErrNotFound = errors.New("blob not found")

// BlobStore loads and saves whole collections by key
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	name       TEXT PRIMARY KEY,
	data       %s NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store keeps blobs in a SQL table
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new Postgres-backed store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf(schema, "JSONB")); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &Store{db: db}, nil
}

// NewSQLiteStore creates a new store in a local SQLite file
func NewSQLiteStore(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf(schema, "TEXT")); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Load returns the blob saved under key
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := util.StartSpan(ctx, "Store.Load", attribute.String("key", key))
	defer span.End()

	var data string
	err := s.db.GetContext(ctx, &data, s.db.Rebind("SELECT data FROM blobs WHERE name = ?"), key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(data), nil
}

// Save replaces the blob under key
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	ctx, span := util.StartSpan(ctx, "Store.Save", attribute.String("key", key))
	defer span.End()

	query := s.db.Rebind(`
		INSERT INTO blobs (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
