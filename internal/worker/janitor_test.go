package worker

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"postly/internal/storage"
)

type recordingStore struct {
	mu      sync.Mutex
	deleted []string
	failKey string
}

func (s *recordingStore) Put(context.Context, string, io.Reader, string) error { return nil }
func (s *recordingStore) Open(context.Context, string) (io.ReadCloser, storage.ObjectInfo, error) {
	return nil, storage.ObjectInfo{}, storage.ErrNotFound
}
func (s *recordingStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (s *recordingStore) Delete(_ context.Context, key string) error {
	if key == s.failKey {
		return errors.New("boom")
	}
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestJanitorDrainsQueueOnShutdown(t *testing.T) {
	store := &recordingStore{failKey: "broken.png"}
	j := NewJanitor(Config{MaxConcurrent: 2, Logger: quietLogger()}, store)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	for _, key := range []string{"a.png", "b.gif", "broken.png", "", "c.jpg"} {
		j.Enqueue(key)
	}
	cancel()
	j.Shutdown()

	sort.Strings(store.deleted)
	want := []string{"a.png", "b.gif", "c.jpg"}
	if len(store.deleted) != len(want) {
		t.Fatalf("deleted = %v, want %v", store.deleted, want)
	}
	for i := range want {
		if store.deleted[i] != want[i] {
			t.Errorf("deleted[%d] = %q, want %q", i, store.deleted[i], want[i])
		}
	}
}

func TestJanitorIgnoresKeysAfterShutdown(t *testing.T) {
	store := &recordingStore{}
	j := NewJanitor(Config{Logger: quietLogger()}, store)
	j.Start(context.Background())
	j.Shutdown()

	j.Enqueue("late.png")
	j.Shutdown()

	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none", store.deleted)
	}
}
