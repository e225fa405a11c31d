package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/ghitriage/internal/api"
	"github.com/ppiankov/ghitriage/internal/cache"
	"github.com/ppiankov/ghitriage/internal/model"
)

// Authenticator exchanges credentials and resolves tokens to users.
// *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.TokenResponse, error)
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Refresher trades the current token for a new one
type Refresher interface {
	RefreshToken(ctx context.Context) (*model.TokenResponse, error)
}

// Event is delivered to listeners whenever the session changes
type Event int

const (
	EventLogin Event = iota + 1
	EventRestored
	EventRefreshed
	EventLogout
	// EventExpired fires once when the backend rejects the current token
	EventExpired
)

func (e Event) String() string {
	switch e {
	case EventLogin:
		return "login"
	case EventRestored:
		return "restored"
	case EventRefreshed:
		return "refreshed"
	case EventLogout:
		return "logout"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Listener is called after the session changes, outside the session lock
type Listener func(Event)

// Session holds the bearer token and the user it resolves to. It is the
// only process-wide mutable auth state and is passed explicitly to the API
// client as its TokenSource.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *model.User

	store    cache.Cache
	tokenKey string
	logger   *slog.Logger

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New creates an unauthenticated session persisting its token in store.
// A nil store keeps the token in memory only.
func New(store cache.Cache, tokenKey string, logger *slog.Logger) *Session {
	if store == nil {
		store = cache.NewMemoryCache(0, time.Minute)
	}
	if tokenKey == "" {
		tokenKey = model.TokenKey
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		store:     store,
		tokenKey:  tokenKey,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Token returns the current bearer token, or "" when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated is true iff both a token and a user are present
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Login authenticates, resolves the user with the new token, and only then
// stores both. On any failure the session is left unchanged.
func (s *Session) Login(ctx context.Context, auth Authenticator, username, password string) (*model.User, error) {
	resp, err := auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	user, err := auth.CurrentUser(ctx, resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.user = user
	s.mu.Unlock()

	if err := s.persist(resp.AccessToken, resp.ExpiresIn); err != nil {
		s.logger.Warn("persist session token", "error", err)
	}

	s.logger.Debug("logged in", "username", user.Username, "role", user.Role)
	s.notify(EventLogin)
	return s.User(), nil
}

// Restore loads a persisted token and resolves its user. A token the
// backend rejects is purged from storage. Any other failure keeps the stored
// token for a later attempt, leaves the session unauthenticated and returns
// the error. A missing token is not an error.
func (s *Session) Restore(ctx context.Context, auth Authenticator) error {
	if s.IsAuthenticated() {
		return nil
	}

	data, ok := s.store.Get(s.tokenKey)
	if !ok || len(data) == 0 {
		return nil
	}
	token := string(data)

	user, err := auth.CurrentUser(ctx, token)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			s.logger.Info("stored session rejected, purging")
			if derr := s.store.Delete(s.tokenKey); derr != nil {
				s.logger.Warn("purge session token", "error", derr)
			}
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.notify(EventRestored)
	return nil
}

// Refresh swaps the current token for a fresh one
func (s *Session) Refresh(ctx context.Context, r Refresher) error {
	old := s.Token()
	if old == "" {
		return api.ErrUnauthenticated
	}

	resp, err := r.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("refresh response carried no access token")
	}

	s.mu.Lock()
	if s.token != old {
		// Logged out or expired while the refresh was in flight
		s.mu.Unlock()
		return api.ErrUnauthenticated
	}
	s.token = resp.AccessToken
	if resp.User != nil {
		s.user = resp.User
	}
	s.mu.Unlock()

	if err := s.persist(resp.AccessToken, resp.ExpiresIn); err != nil {
		s.logger.Warn("persist session token", "error", err)
	}
	s.notify(EventRefreshed)
	return nil
}

// Logout clears the token and user from memory and storage. It makes no
// network call.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	err := s.store.Delete(s.tokenKey)
	s.notify(EventLogout)
	if err != nil {
		return fmt.Errorf("remove stored token: %w", err)
	}
	return nil
}

// Expire purges the session if token is still the current one and reports
// whether it did. Concurrent 401s carrying the same token purge exactly once.
func (s *Session) Expire(token string) bool {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Delete(s.tokenKey); err != nil {
		s.logger.Warn("purge session token", "error", err)
	}
	s.notify(EventExpired)
	return true
}

// Subscribe registers fn for session events and returns a cancel func
func (s *Session) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Session) notify(ev Event) {
	s.lmu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Session) persist(token string, expiresIn int) error {
	ttl := time.Duration(expiresIn) * time.Second
	return s.store.Set(s.tokenKey, []byte(token), ttl)
}
