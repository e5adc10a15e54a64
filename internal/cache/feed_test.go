package cache

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"postly/internal/domain"
)

// memoryRedis answers the commands RedisFeedCache issues from a map.
type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	down bool
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string)}
}

var errRedisDown = errors.New("connection refused")

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return redis.NewStringResult("", errRedisDown)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return redis.NewStatusResult("", errRedisDown)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return redis.NewIntResult(0, errRedisDown)
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Close() error { return nil }

func (m *memoryRedis) keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newTestFeedCache(rdb redisStore) *RedisFeedCache {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return newRedisFeedCache(rdb, time.Minute, logger)
}

func TestRedisFeedCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	feed := newTestFeedCache(newMemoryRedis())

	posts, gen, ok := feed.Get(ctx, 0, 10)
	if ok || posts != nil || gen != 0 {
		t.Fatalf("cold get = %v, %d, %v", posts, gen, ok)
	}

	feed.Set(ctx, gen, 0, 10, []domain.Post{{ID: "p1", Text: "hello #world"}})
	posts, _, ok = feed.Get(ctx, 0, 10)
	if !ok || len(posts) != 1 || posts[0].Text != "hello #world" {
		t.Fatalf("warm get = %+v, %v", posts, ok)
	}
	if _, _, ok := feed.Get(ctx, 10, 10); ok {
		t.Error("other page served from cache")
	}

	feed.Invalidate(ctx)
	if _, gen, ok := feed.Get(ctx, 0, 10); ok || gen != 1 {
		t.Errorf("after invalidate: gen %d, hit %v", gen, ok)
	}
}

func TestRedisFeedCacheDropsPageReadBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	feed := newTestFeedCache(newMemoryRedis())

	// a reader misses and loads the feed while it is still empty
	_, gen, ok := feed.Get(ctx, 0, 10)
	if ok {
		t.Fatal("unexpected hit")
	}
	stale := []domain.Post{}

	// a post is written and the cache invalidated before the reader stores its page
	feed.Invalidate(ctx)
	feed.Set(ctx, gen, 0, 10, stale)

	if posts, _, ok := feed.Get(ctx, 0, 10); ok {
		t.Fatalf("page loaded before invalidation served: %d posts", len(posts))
	}
}

func TestRedisFeedCacheBackendDown(t *testing.T) {
	ctx := context.Background()
	rdb := newMemoryRedis()
	feed := newTestFeedCache(rdb)

	rdb.down = true
	posts, gen, ok := feed.Get(ctx, 0, 10)
	if ok || posts != nil || gen != NoGeneration {
		t.Fatalf("get while down = %v, %d, %v", posts, gen, ok)
	}
	feed.Invalidate(ctx)

	rdb.down = false
	feed.Set(ctx, gen, 0, 10, []domain.Post{{ID: "p1"}})
	if n := rdb.keys(); n != 0 {
		t.Errorf("page stored without a known generation: %d keys", n)
	}
}

func TestNoopNeverHits(t *testing.T) {
	ctx := context.Background()
	var feed FeedCache = Noop{}
	feed.Set(ctx, 0, 0, 10, []domain.Post{{ID: "p1"}})
	if _, gen, ok := feed.Get(ctx, 0, 10); ok || gen != NoGeneration {
		t.Errorf("noop get = %d, %v", gen, ok)
	}
}
