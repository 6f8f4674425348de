package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createKVTable = `
CREATE TABLE IF NOT EXISTS secure_kv (
	name       TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const saltName = BlobName + ".salt"

// SQLite is the plain persistent key-value fallback used when no secure
// location is available. When a seal secret is configured the blob is stored
// sealed (see sealer); the derivation salt lives in its own row next to it.
type SQLite struct {
	db         *sql.DB
	sealSecret string

	sealOnce sync.Once
	sealErr  error
	sealed   *sealer
}

// SQLiteOption customizes an SQLite store.
type SQLiteOption func(*SQLite)

// WithSealSecret turns on blob sealing with a key derived from secret.
func WithSealSecret(secret string) SQLiteOption {
	return func(s *SQLite) {
		s.sealSecret = secret
	}
}

// OpenSQLite opens (creating if needed) the key-value database at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", ErrUnavailable, path, err)
	}
	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init sqlite schema: %w", ErrUnavailable, err)
	}
	s := &SQLite{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.get(ctx, BlobName)
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealerFor(ctx)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return blob, nil
	}
	return sealed.open(blob)
}

func (s *SQLite) Save(ctx context.Context, blob []byte) error {
	sealed, err := s.sealerFor(ctx)
	if err != nil {
		return err
	}
	if sealed != nil {
		if blob, err = sealed.seal(blob); err != nil {
			return err
		}
	}
	return s.put(ctx, BlobName, blob)
}

func (s *SQLite) get(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM secure_kv WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, name, err)
	}
	return value, nil
}

func (s *SQLite) put(ctx context.Context, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secure_kv (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrUnavailable, name, err)
	}
	return nil
}

// sealerFor lazily builds the sealer, creating and persisting the derivation
// salt on first use. Returns nil when sealing is not configured.
func (s *SQLite) sealerFor(ctx context.Context) (*sealer, error) {
	if s.sealSecret == "" {
		return nil, nil
	}
	s.sealOnce.Do(func() {
		salt, err := s.get(ctx, saltName)
		if errors.Is(err, ErrNotFound) {
			salt = make([]byte, sealSaltLen)
			if _, err = io.ReadFull(rand.Reader, salt); err == nil {
				err = s.put(ctx, saltName, salt)
			}
		}
		if err != nil {
			s.sealErr = err
			return
		}
		s.sealed, s.sealErr = newSealer(s.sealSecret, salt)
	})
	return s.sealed, s.sealErr
}
