package database

import (
	"fmt"
	"log/slog"
)

// Client is the single database handle of the process. It is built once at startup and passed down.
type Client struct {
	Query Query
	store DocumentStore
}

// NewClient builds the store for config.Type. No connection is made here.
func NewClient(config ClientConfig) (*Client, error) {
	store, err := newStore(config)
	if err != nil {
		return nil, err
	}
	slog.Info("database client created", "type", config.Type, "domain", config.ResolvedDomain())

	return &Client{
		Query: NewQuery("gallery"),
		store: store,
	}, nil
}

func newStore(config ClientConfig) (DocumentStore, error) {
	switch config.Type {
	case TypeRedis, "":
		return NewRedisStore(config.ResolvedDomain(), config.Secret), nil
	case TypeSQLite:
		store, err := NewSQLiteStore(config.ResolvedDomain())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

func (c *Client) Store() DocumentStore {
	return c.store
}

func (c *Client) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
