package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"postly/internal/domain"
)

// FeedCache holds pages of the global feed. Misses and backend failures are
// indistinguishable to callers; writes invalidate every cached page.
//
// Get reports the generation it looked in. A page loaded after a miss must be
// stored with Set under that same generation, so a page read before an
// Invalidate can never be served after it.
type FeedCache interface {
	Get(ctx context.Context, skip, limit int) ([]domain.Post, Generation, bool)
	Set(ctx context.Context, gen Generation, skip, limit int, posts []domain.Post)
	Invalidate(ctx context.Context)
	Close() error
}

// Generation identifies one validity window of the feed cache.
type Generation int64

// NoGeneration is reported when the current generation is unknown; Set
// ignores it.
const NoGeneration Generation = -1

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context, int, int) ([]domain.Post, Generation, bool) {
	return nil, NoGeneration, false
}
func (Noop) Set(context.Context, Generation, int, int, []domain.Post) {}
func (Noop) Invalidate(context.Context) {}
func (Noop) Close() error { return nil }

const generationKey = "postly:feed:generation"

// redisStore is the subset of *redis.Client the feed cache uses.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Close() error
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   *logrus.Logger
}

// RedisFeedCache versions page keys by a generation counter so invalidation is
// a single INCR instead of a key scan.
type RedisFeedCache struct {
	rdb    redisStore
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisFeedCache(ctx context.Context, opts RedisOptions) (*RedisFeedCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisFeedCache(rdb, opts.TTL, opts.Logger), nil
}

func newRedisFeedCache(rdb redisStore, ttl time.Duration, logger *logrus.Logger) *RedisFeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisFeedCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *RedisFeedCache) Get(ctx context.Context, skip, limit int) ([]domain.Post, Generation, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warnf("feed cache generation: %v", err)
		return nil, NoGeneration, false
	}
	raw, err := c.rdb.Get(ctx, pageKey(gen, skip, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf("feed cache get: %v", err)
		}
		return nil, gen, false
	}
	var posts []domain.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		c.logger.Warnf("feed cache decode: %v", err)
		return nil, gen, false
	}
	return posts, gen, true
}

// Set stores a page under gen. Pages for a superseded generation land on keys
// no reader looks up again and expire with the TTL.
func (c *RedisFeedCache) Set(ctx context.Context, gen Generation, skip, limit int, posts []domain.Post) {
	if gen == NoGeneration {
		return
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		c.logger.Warnf("feed cache encode: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, pageKey(gen, skip, limit), raw, c.ttl).Err(); err != nil {
		c.logger.Warnf("feed cache set: %v", err)
	}
}

func (c *RedisFeedCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warnf("feed cache invalidate: %v", err)
	}
}

func (c *RedisFeedCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisFeedCache) generation(ctx context.Context) (Generation, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return NoGeneration, err
	}
	return Generation(gen), nil
}

func pageKey(gen Generation, skip, limit int) string {
	return fmt.Sprintf("postly:feed:%d:%d:%d", gen, skip, limit)
}

var (
	_ FeedCache  = Noop{}
	_ FeedCache  = (*RedisFeedCache)(nil)
	_ redisStore = (*redis.Client)(nil)
)
