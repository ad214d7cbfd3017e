package posts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix = "quill:post:"
	// generationTTL outlives any single load by a wide margin.
	generationTTL = 24 * time.Hour
)

// Cache lookup outcomes.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// Cache is a read-through Redis cache for single posts. A nil *Cache, or
// one without a client, passes every call straight to the loader.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
	lookups *prometheus.CounterVec
}

// NewCache constructs a cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Instrument registers a lookup counter on reg. Call before serving traffic.
func (c *Cache) Instrument(reg prometheus.Registerer) error {
	if c == nil || reg == nil {
		return nil
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_post_cache_lookups_total",
		Help: "Post cache lookups by result (hit, miss, error).",
	}, []string{"result"})
	if err := reg.Register(lookups); err != nil {
		return err
	}
	c.lookups = lookups
	return nil
}

func (c *Cache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

func cacheKey(id int64) string {
	return cacheKeyPrefix + strconv.FormatInt(id, 10)
}

func genKey(id int64) string {
	return cacheKey(id) + ":gen"
}

// Fetch returns the cached post or loads it. Concurrent misses for the same
// id share one load. Redis failures degrade to the loader.
func (c *Cache) Fetch(ctx context.Context, id int64, load func(context.Context, int64) (Post, error)) (Post, error) {
	if c == nil || c.client == nil {
		return load(ctx, id)
	}
	key := cacheKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Post
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			c.observe(cacheHit)
			return p, nil
		}
		c.observe(cacheError)
		c.logger.Warn("discard corrupt cached post", slog.Int64("post_id", id))
	case errors.Is(err, redis.Nil):
		c.observe(cacheMiss)
	default:
		c.observe(cacheError)
		c.logger.Warn("post cache read failed", slog.Int64("post_id", id), slog.Any("error", err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller going away must not fail the rest.
		loadCtx := context.WithoutCancel(ctx)
		gen, genErr := c.generation(loadCtx, id)
		p, err := load(loadCtx, id)
		if err != nil {
			return Post{}, err
		}
		if genErr == nil {
			c.storeIfCurrent(loadCtx, id, gen, p)
		}
		return p, nil
	})
	if err != nil {
		return Post{}, err
	}
	return v.(Post), nil
}

// generation reads the invalidation counter for id. Missing counts as zero.
func (c *Cache) generation(ctx context.Context, id int64) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// storeIfCurrent writes p only when no Invalidate ran since gen was read, so a
// load that raced an update cannot put the old copy back.
func (c *Cache) storeIfCurrent(ctx context.Context, id, gen int64, p Post) {
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	key, gk := cacheKey(id), genKey(id)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, gk)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		c.logger.Warn("post cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Invalidate drops the cached copy of a post and fences off loads already in
// flight. The counter is bumped before the delete.
func (c *Cache) Invalidate(ctx context.Context, id int64) {
	if c == nil || c.client == nil {
		return
	}
	key, gk := cacheKey(id), genKey(id)
	c.group.Forget(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		c.logger.Warn("post cache invalidate failed", slog.Int64("post_id", id), slog.Any("error", err))
	}
}
