package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db               *sqlx.DB
	connectionString string
	now              func() time.Time
}

type sqliteDocument struct {
	Doc       []byte        `db:"doc"`
	ExpiresAt sql.NullInt64 `db:"expires_at"`
}

func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}
	if err := store.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createTable() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		doc BLOB NOT NULL,
		expires_at INTEGER
	)`)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (key, doc, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, expires_at = excluded.expires_at`,
		key, doc, expiresAt)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row sqliteDocument
	err := s.db.GetContext(ctx, &row, "SELECT doc, expires_at FROM documents WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= s.now().UnixNano() {
		return nil, ErrNotFound
	}
	return row.Doc, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key)
	return err
}

// Ping reports whether the database answers; the file is created on first connect.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
