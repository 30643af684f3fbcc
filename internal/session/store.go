package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/auth"
	"certgen/frontend/internal/model"
)

var ErrMissingToken = errors.New("login response carried no token")

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// User is the persisted user record.
type User struct {
	ID       model.ID  `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
}

func (u User) Capabilities() auth.Capabilities {
	return auth.PolicyFor(u.Role)
}

// Authenticator is the part of the API client the lifecycle calls.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
}

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Store holds the one active session. Only Login and Logout (and expiry,
// which is a logout) write it.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	logger  *slog.Logger
	now     func() time.Time

	token string
	user  User
	state State
}

// Open restores the session from storage. A half-written pair, an unreadable
// user record or an expired JWT is purged and the store starts Anonymous.
func Open(ctx context.Context, storage Storage, opts Options) (*Store, error) {
	s := &Store{storage: storage, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	snap, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if snap.empty() {
		return s, nil
	}
	if !snap.complete() {
		s.logger.Warn("purging incomplete session")
		return s, s.purge(ctx)
	}

	var user User
	if err := json.Unmarshal(snap.User, &user); err != nil {
		s.logger.Warn("purging unreadable session user", "error", err)
		return s, s.purge(ctx)
	}
	user.Role = auth.Role(strings.ToUpper(strings.TrimSpace(string(user.Role))))
	if auth.TokenExpired(snap.Token, s.now()) {
		s.logger.Info("stored token expired", "user_id", user.ID.String())
		return s, s.purge(ctx)
	}

	s.token = snap.Token
	s.user = user
	s.state = Authenticated
	return s, nil
}

func (s *Store) purge(ctx context.Context) error {
	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the user and whether a session is active.
func (s *Store) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated {
		return User{}, false
	}
	return s.user, true
}

// Capabilities of the current user. Anonymous sessions get none.
func (s *Store) Capabilities() auth.Capabilities {
	user, ok := s.Current()
	if !ok {
		return auth.Capabilities{}
	}
	return user.Capabilities()
}

// Login authenticates, persists the token and user record, and moves the
// store to Authenticated. On any failure the store is left as it was.
func (s *Store) Login(ctx context.Context, authn Authenticator, req api.LoginRequest) (User, error) {
	resp, err := authn.Login(ctx, req)
	if err != nil {
		return User{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return User{}, ErrMissingToken
	}
	user := User{
		ID:       resp.ID,
		FullName: resp.FullName,
		Email:    resp.Email,
		Role:     auth.Role(strings.ToUpper(strings.TrimSpace(resp.Role))),
	}
	if _, err := auth.ParseRole(resp.Role); err != nil {
		s.logger.Warn("login returned unknown role", "role", resp.Role)
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(ctx, Snapshot{Token: resp.Token, User: encoded}); err != nil {
		return User{}, fmt.Errorf("persist session: %w", err)
	}
	s.token = resp.Token
	s.user = user
	s.state = Authenticated
	s.logger.Info("session started", "user_id", user.ID.String(), "role", user.Role.String())
	return user, nil
}

// Register never creates a session. It returns the backend's message when
// one was sent.
func (s *Store) Register(ctx context.Context, authn Authenticator, req api.RegisterRequest) (string, error) {
	return authn.Register(ctx, req)
}

// Logout clears the session without a network call. The in-memory state is
// Anonymous even if clearing storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = User{}
	s.state = Anonymous
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn("session clear failed", "error", err)
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ExpireIfNeeded logs out when the held token is a JWT whose exp has passed.
func (s *Store) ExpireIfNeeded(ctx context.Context) (bool, error) {
	s.mu.RLock()
	token, state := s.token, s.state
	s.mu.RUnlock()
	if state != Authenticated || !auth.TokenExpired(token, s.now()) {
		return false, nil
	}
	s.logger.Info("session token expired")
	return true, s.Logout(ctx)
}

func (s *Store) Close() error {
	return s.storage.Close()
}
