package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"postly/internal/cache"
	"postly/internal/domain"
	"postly/internal/repository"
	"postly/internal/repository/sqlite"
	"postly/internal/storage"
)

type testEnv struct {
	users repository.UserRepository
	posts repository.PostRepository
	media *storage.LocalService
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "postly.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := testEnv{users: sqlite.NewUserRepository(db), posts: sqlite.NewPostRepository(db)}
	ctx := context.Background()
	if err := env.users.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := env.posts.Init(ctx); err != nil {
		t.Fatalf("init posts: %v", err)
	}
	env.media, err = storage.NewLocalService(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("media: %v", err)
	}
	return env
}

func (e testEnv) userService() UserService {
	return &userService{users: e.users, cost: bcrypt.MinCost}
}

func (e testEnv) signup(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := e.userService().Signup(context.Background(), SignupInput{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  "secret1",
		Birthday:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return user
}

type recordingRemover struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingRemover) Enqueue(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *recordingRemover) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type countingCache struct {
	mu          sync.Mutex
	gen         cache.Generation
	pages       map[[3]int][]domain.Post
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{pages: make(map[[3]int][]domain.Post)}
}

func (c *countingCache) Get(_ context.Context, skip, limit int) ([]domain.Post, cache.Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts, ok := c.pages[[3]int{int(c.gen), skip, limit}]
	return posts, c.gen, ok
}

func (c *countingCache) Set(_ context.Context, gen cache.Generation, skip, limit int, posts []domain.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[[3]int{int(gen), skip, limit}] = posts
}

func (c *countingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
}

func (c *countingCache) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
