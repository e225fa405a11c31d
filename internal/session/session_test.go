package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/ghitriage/internal/api"
	"github.com/ppiankov/ghitriage/internal/cache"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/testserver"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *testserver.Server, s *Session) *api.Client {
	t.Helper()
	c, err := api.New(api.Options{BaseURL: srv.URL()}, s)
	require.NoError(t, err)
	return c
}

// gatedAuth wraps an Authenticator and blocks CurrentUser until released
type gatedAuth struct {
	Authenticator
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAuth) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	close(g.entered)
	<-g.release
	return g.Authenticator.CurrentUser(ctx, token)
}

func TestLogin_AuthenticatedOnlyAfterUserResolves(t *testing.T) {
	srv := testserver.New(t)
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	client := newClient(t, srv, s)

	auth := &gatedAuth{Authenticator: client, entered: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), auth, testserver.AnalystUsername, testserver.AnalystPassword)
		done <- err
	}()

	<-auth.entered
	require.Equal(t, 1, srv.Hits(testserver.RouteLogin))
	require.False(t, s.IsAuthenticated())
	require.Empty(t, s.Token())

	close(auth.release)
	require.NoError(t, <-done)

	require.True(t, s.IsAuthenticated())
	user := s.User()
	require.Equal(t, testserver.AnalystUsername, user.Username)
	require.NotEmpty(t, user.Role)

	stored, ok := store.Get(model.TokenKey)
	require.True(t, ok)
	require.Equal(t, s.Token(), string(stored))
}

func TestLogin_FailureLeavesSessionEmpty(t *testing.T) {
	srv := testserver.New(t)
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	client := newClient(t, srv, s)

	_, err := s.Login(context.Background(), client, testserver.AnalystUsername, "bad")
	require.ErrorIs(t, err, api.ErrUnauthenticated)
	require.False(t, s.IsAuthenticated())

	_, ok := store.Get(model.TokenKey)
	require.False(t, ok)
}

func TestConcurrentUnauthorizedPurgesOnce(t *testing.T) {
	srv := testserver.New(t)
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	client := newClient(t, srv, s)
	ctx := context.Background()

	_, err := s.Login(ctx, client, testserver.AnalystUsername, testserver.AnalystPassword)
	require.NoError(t, err)

	var expired, events atomic.Int32
	s.Subscribe(func(ev Event) {
		events.Add(1)
		if ev == EventExpired {
			expired.Add(1)
		}
	})

	srv.RevokeTokens()
	release := srv.Gate(testserver.RouteSignals)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListSignals(ctx, model.SignalFilter{})
		}(i)
	}

	require.Eventually(t, func() bool {
		return srv.Hits(testserver.RouteSignals) == n
	}, testTimeout, testTick)
	release()
	wg.Wait()

	for _, err := range errs {
		require.True(t, api.IsSessionExpired(err))
	}
	require.Equal(t, int32(1), expired.Load())
	require.Equal(t, int32(1), events.Load())
	require.False(t, s.IsAuthenticated())
	require.Nil(t, s.User())

	_, ok := store.Get(model.TokenKey)
	require.False(t, ok)
}

func TestExpire_IgnoresStaleToken(t *testing.T) {
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	s.token = "current"
	s.user = &model.User{Username: "a"}

	require.False(t, s.Expire("old"))
	require.False(t, s.Expire(""))
	require.True(t, s.IsAuthenticated())

	require.True(t, s.Expire("current"))
	require.False(t, s.Expire("current"))
}

func TestRestore(t *testing.T) {
	srv := testserver.New(t)
	ctx := context.Background()

	t.Run("valid stored token", func(t *testing.T) {
		store := cache.NewMemoryCache(0, 0)
		require.NoError(t, store.Set(model.TokenKey, []byte(srv.IssueToken(testserver.DirectorUsername)), 0))

		s := New(store, "", nil)
		var restored atomic.Bool
		s.Subscribe(func(ev Event) { restored.Store(ev == EventRestored) })

		require.NoError(t, s.Restore(ctx, newClient(t, srv, s)))
		require.True(t, s.IsAuthenticated())
		require.Equal(t, "director", s.User().Role)
		require.True(t, restored.Load())
	})

	t.Run("rejected token is purged", func(t *testing.T) {
		store := cache.NewMemoryCache(0, 0)
		require.NoError(t, store.Set(model.TokenKey, []byte("expired-token"), 0))

		s := New(store, "", nil)
		require.NoError(t, s.Restore(ctx, newClient(t, srv, s)))
		require.False(t, s.IsAuthenticated())

		_, ok := store.Get(model.TokenKey)
		require.False(t, ok)
	})

	t.Run("server error keeps stored token", func(t *testing.T) {
		store := cache.NewMemoryCache(0, 0)
		token := srv.IssueToken(testserver.AnalystUsername)
		require.NoError(t, store.Set(model.TokenKey, []byte(token), 0))

		srv.Fail(testserver.RouteMe, 502)
		defer srv.Fail(testserver.RouteMe, 0)

		s := New(store, "", nil)
		err := s.Restore(ctx, newClient(t, srv, s))
		require.Error(t, err)
		require.False(t, errors.Is(err, api.ErrUnauthenticated))
		require.False(t, s.IsAuthenticated())

		stored, ok := store.Get(model.TokenKey)
		require.True(t, ok)
		require.Equal(t, token, string(stored))
	})

	t.Run("nothing stored", func(t *testing.T) {
		before := srv.Hits(testserver.RouteMe)
		s := New(cache.NewMemoryCache(0, 0), "", nil)
		require.NoError(t, s.Restore(ctx, newClient(t, srv, s)))
		require.False(t, s.IsAuthenticated())
		require.Equal(t, before, srv.Hits(testserver.RouteMe))
	})
}

func TestRefresh(t *testing.T) {
	srv := testserver.New(t)
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	client := newClient(t, srv, s)
	ctx := context.Background()

	require.ErrorIs(t, s.Refresh(ctx, client), api.ErrUnauthenticated)

	_, err := s.Login(ctx, client, testserver.AnalystUsername, testserver.AnalystPassword)
	require.NoError(t, err)
	old := s.Token()

	require.NoError(t, s.Refresh(ctx, client))
	require.NotEqual(t, old, s.Token())
	require.True(t, s.IsAuthenticated())

	stored, ok := store.Get(model.TokenKey)
	require.True(t, ok)
	require.Equal(t, s.Token(), string(stored))
}

func TestLogout(t *testing.T) {
	srv := testserver.New(t)
	store := cache.NewMemoryCache(0, 0)
	s := New(store, "", nil)
	client := newClient(t, srv, s)
	ctx := context.Background()

	_, err := s.Login(ctx, client, testserver.AnalystUsername, testserver.AnalystPassword)
	require.NoError(t, err)
	hits := srv.TotalHits()

	var got []Event
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev) })

	require.NoError(t, s.Logout())
	require.False(t, s.IsAuthenticated())
	require.Empty(t, s.Token())
	require.Equal(t, hits, srv.TotalHits())
	require.Equal(t, []Event{EventLogout}, got)

	_, ok := store.Get(model.TokenKey)
	require.False(t, ok)

	cancel()
	require.NoError(t, s.Logout())
	require.Len(t, got, 1)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []string{"file", "sqlite", "memory"} {
		t.Run(kind, func(t *testing.T) {
			store, closeFn, err := OpenStore(model.SessionConfig{Store: kind, Path: dir + "/" + kind})
			require.NoError(t, err)
			defer closeFn()

			require.NoError(t, store.Set(model.TokenKey, []byte("tok"), 0))
			v, ok := store.Get(model.TokenKey)
			require.True(t, ok)
			require.Equal(t, "tok", string(v))
		})
	}

	_, _, err := OpenStore(model.SessionConfig{Store: "redis"})
	require.Error(t, err)
}
