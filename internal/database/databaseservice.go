package database

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// DocumentStore persists opaque documents under string keys.
type DocumentStore interface {
	// Put stores doc under key. A ttl of zero keeps the document until it is deleted.
	Put(ctx context.Context, key string, doc []byte, ttl time.Duration) error
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
