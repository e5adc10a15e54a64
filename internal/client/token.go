package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenTTL is how long a stored session token is kept before it reads as absent.
const TokenTTL = 7 * 24 * time.Hour

// TokenStore persists the bearer token between calls. It never talks to the
// server; IsAuthenticated only reports whether a live token is stored.
type TokenStore interface {
	Set(token string) error
	Get() (string, bool)
	Remove() error
	IsAuthenticated() bool
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{ttl: TokenTTL, now: time.Now}
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryTokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	if !s.now().Before(s.expires) {
		s.token = ""
		return "", false
	}
	return s.token, true
}

func (s *MemoryTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
	return nil
}

func (s *MemoryTokenStore) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

// FileTokenStore keeps the token in a JSON file readable only by its owner.
// Missing, unreadable or expired files read as no token.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	now  func() time.Time
}

type tokenFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, ttl: TokenTTL, now: time.Now}
}

// DefaultTokenPath is the token file under the user's config directory.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "postly", "token.json"), nil
}

func (s *FileTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(tokenFile{Token: token, ExpiresAt: s.now().Add(s.ttl).UTC()})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var stored tokenFile
	if err := json.Unmarshal(raw, &stored); err != nil || stored.Token == "" {
		return "", false
	}
	if !s.now().Before(stored.ExpiresAt) {
		_ = os.Remove(s.path)
		return "", false
	}
	return stored.Token, true
}

func (s *FileTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ TokenStore = (*FileTokenStore)(nil)
)
