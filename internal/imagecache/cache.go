package imagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/imagegallery/internal/database"
	"github.com/jo-hoe/imagegallery/internal/gallery"
)

const DefaultTTL = 5 * time.Minute

type Lister interface {
	ListImages(ctx context.Context) ([]gallery.ImageRecord, error)
}

// Cache holds the fetched image list under the "images" tag until it is invalidated.
type Cache struct {
	store  database.DocumentStore
	query  database.Query
	lister Lister
	ttl    time.Duration
}

func New(client *database.Client, lister Lister, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  client.Store(),
		query:  client.Query,
		lister: lister,
		ttl:    ttl,
	}
}

// Images returns the cached list or fetches and caches it.
func (c *Cache) Images(ctx context.Context) ([]gallery.ImageRecord, error) {
	key := c.query.Collection(gallery.CacheKeyImages).Key()

	doc, err := c.store.Get(ctx, key)
	if err == nil {
		var images []gallery.ImageRecord
		if err := json.Unmarshal(doc, &images); err == nil {
			return images, nil
		}
		slog.Warn("imagecache: dropping undecodable cache entry", "key", key)
	} else if !errors.Is(err, database.ErrNotFound) {
		slog.Warn("imagecache: failed to read cache entry", "key", key, "error", err)
	}

	images, err := c.lister.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch images: %w", err)
	}
	if images == nil {
		images = []gallery.ImageRecord{}
	}

	doc, err = json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}
	if err := c.store.Put(ctx, key, doc, c.ttl); err != nil {
		slog.Warn("imagecache: failed to write cache entry", "key", key, "error", err)
	}
	return images, nil
}

// Invalidate drops the listing cached under tag so the next read refetches it.
func (c *Cache) Invalidate(ctx context.Context, tag string) error {
	if err := c.store.Delete(ctx, c.query.Collection(tag).Key()); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", tag, err)
	}
	return nil
}
