package client

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryTokenStoreLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryTokenStore()
	store.now = clock.Now

	if store.IsAuthenticated() {
		t.Fatal("empty store reports authenticated")
	}
	if err := store.Set("tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, ok := store.Get(); !ok || got != "tok" {
		t.Fatalf("get = %q, %v", got, ok)
	}

	clock.Advance(TokenTTL - time.Second)
	if !store.IsAuthenticated() {
		t.Fatal("token expired early")
	}
	clock.Advance(time.Second)
	if store.IsAuthenticated() {
		t.Fatal("token outlived its ttl")
	}

	_ = store.Set("again")
	_ = store.Remove()
	if _, ok := store.Get(); ok {
		t.Fatal("token survived remove")
	}
}

func TestFileTokenStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	first := NewFileTokenStore(path)
	first.now = clock.Now
	if err := first.Set("persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := fi.Mode().Perm(); perm != 0o600 {
			t.Errorf("token file perm = %o, want 600", perm)
		}
	}

	second := NewFileTokenStore(path)
	second.now = clock.Now
	if got, ok := second.Get(); !ok || got != "persisted" {
		t.Fatalf("reopened get = %q, %v", got, ok)
	}

	clock.Advance(TokenTTL)
	if second.IsAuthenticated() {
		t.Fatal("expired token still authenticated")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expired token file not removed: %v", err)
	}
}

func TestFileTokenStoreRemoveAndCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	if err := store.Remove(); err != nil {
		t.Fatalf("remove missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if store.IsAuthenticated() {
		t.Fatal("corrupt file reads as a token")
	}

	_ = store.Set("tok")
	if err := store.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("token survived remove")
	}
}
