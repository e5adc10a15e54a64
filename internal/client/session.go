package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// State is where a Session sits in its lifecycle.
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AuthAPI is the part of the API a Session drives. *Client implements it.
type AuthAPI interface {
	Signup(ctx context.Context, req SignupRequest) Response[User]
	Login(ctx context.Context, email, password string) Response[AuthToken]
	CurrentUser(ctx context.Context) Response[User]
}

// Snapshot is an immutable view of a Session.
type Snapshot struct {
	State State
	User  *User
}

// Session owns the signed-in user. Hosts construct one, call Refresh, and
// observe transitions through Subscribe.
//
// Overlapping Refresh calls are not deduplicated: whichever response is
// applied last decides the final state, including one that lands after a
// Logout. Results of requests whose caller has gone away are still applied.
type Session struct {
	api    AuthAPI
	tokens TokenStore
	logger *logrus.Logger

	mu     sync.Mutex
	state  State
	user   *User
	subs   map[int]func(Snapshot)
	nextID int
}

func NewSession(api AuthAPI, tokens TokenStore, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{
		api:    api,
		tokens: tokens,
		logger: logger,
		state:  StateLoading,
		subs:   make(map[int]func(Snapshot)),
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every later transition and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Refresh derives the session from the stored token. Without a token it
// settles on unauthenticated with no request. A failed lookup clears the
// token and is returned.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.tokens.IsAuthenticated() {
		s.transition(StateUnauthenticated, nil)
		return nil
	}

	resp := s.api.CurrentUser(ctx)
	if !resp.Success {
		s.clearToken()
		s.transition(StateUnauthenticated, nil)
		return resp.Err()
	}

	user := resp.Data
	s.transition(StateAuthenticated, &user)
	return nil
}

// Login exchanges credentials for a token, stores it and loads the user.
// On a rejected sign-in nothing is stored and the state is untouched.
func (s *Session) Login(ctx context.Context, email, password string) error {
	resp := s.api.Login(ctx, email, password)
	if !resp.Success {
		return resp.Err()
	}
	if resp.Data.AccessToken == "" {
		return errors.New("sign-in response carried no token")
	}
	if err := s.tokens.Set(resp.Data.AccessToken); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return s.Refresh(ctx)
}

// Signup creates an account without signing in.
func (s *Session) Signup(ctx context.Context, req SignupRequest) error {
	return s.api.Signup(ctx, req).Err()
}

// Logout forgets the token locally. It sends nothing and cannot fail.
func (s *Session) Logout() {
	s.clearToken()
	s.transition(StateUnauthenticated, nil)
}

func (s *Session) clearToken() {
	if err := s.tokens.Remove(); err != nil {
		s.logger.Warnf("remove token: %v", err)
	}
}

func (s *Session) transition(state State, user *User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.WithField("state", state.String()).Debug("session transition")
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
