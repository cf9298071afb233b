package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/redis"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(entryID string) string
}

// ReadThroughCache fronts a Loader with a redis cache. It replaces the
// original system's module-level catalog cache with an injectable dependency,
// so tests run against the inner loader directly.
type ReadThroughCache struct {
	inner Loader
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewReadThroughCache wires the cache. A zero ttl disables expiry grouping
// and falls back to one minute.
func NewReadThroughCache(inner Loader, store *redis.Client, ttl time.Duration, logg *logger.Logger) (*ReadThroughCache, error) {
	if inner == nil {
		return nil, errors.New("inner loader required")
	}
	if store == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReadThroughCache{inner: inner, store: store, ttl: ttl, logg: logg}, nil
}

// GetByID serves from cache when possible and reads through on miss. Cache
// failures degrade to the inner loader; they never fail the lookup.
func (c *ReadThroughCache) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error) {
	key := c.store.CatalogKey(id.String())

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var entry models.CatalogEntry
		if unmarshalErr := json.Unmarshal([]byte(raw), &entry); unmarshalErr == nil {
			return &entry, nil
		}
		// fall through and re-read on a corrupt cache value
	case !errors.Is(err, redis.Nil):
		if c.logg != nil {
			c.logg.Warn(ctx, "catalog cache read failed, falling back to store")
		}
	}

	entry, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(entry); marshalErr == nil {
		if setErr := c.store.Set(ctx, key, string(encoded), c.ttl); setErr != nil && c.logg != nil {
			c.logg.Warn(ctx, "catalog cache write failed")
		}
	}
	return entry, nil
}
