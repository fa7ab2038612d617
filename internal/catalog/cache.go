package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/warehouse/pkg/db/models"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"github.com/angelmondragon/warehouse/pkg/redis"
)

const defaultCacheTTL = 5 * time.Minute

// Cache is the key/value surface the catalog needs for read-through product
// lookups. *redis.Client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ProductKey(id int64) string
}

// productCache never fails a catalog operation: cache errors are logged and
// the database stays authoritative.
type productCache struct {
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func newProductCache(cache Cache, ttl time.Duration, logg *logger.Logger) *productCache {
	if cache == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &productCache{cache: cache, ttl: ttl, logg: logg}
}

func (c *productCache) get(ctx context.Context, id int64) (*models.Product, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, c.cache.ProductKey(id))
	if err != nil {
		if !redis.IsMiss(err) {
			c.warn(ctx, id, "product cache read failed")
		}
		return nil, false
	}
	var product models.Product
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		c.warn(ctx, id, "product cache entry unreadable")
		return nil, false
	}
	return &product, true
}

func (c *productCache) put(ctx context.Context, product *models.Product) {
	if c == nil || product == nil {
		return
	}
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.ProductKey(product.ID), string(payload), c.ttl); err != nil {
		c.warn(ctx, product.ID, "product cache write failed")
	}
}

func (c *productCache) evict(ctx context.Context, id int64) {
	if c == nil {
		return
	}
	if err := c.cache.Del(ctx, c.cache.ProductKey(id)); err != nil {
		c.warn(ctx, id, "product cache eviction failed")
	}
}

func (c *productCache) warn(ctx context.Context, id int64, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithProductID(ctx, id), msg)
}
