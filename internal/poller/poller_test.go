package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// withFakeTicker swaps the poller's ticker and counts how many were created
func withFakeTicker[T any](p *Poller[T]) (*fakeTicker, *atomic.Int32) {
	ft := &fakeTicker{c: make(chan time.Time)}
	var created atomic.Int32
	p.newTicker = func(time.Duration) ticker {
		created.Add(1)
		return ft
	}
	return ft, &created
}

type result struct {
	data string
	err  error
}

// gatedFetch hands each call's reply channel to the test in issue order
type gatedFetch struct {
	calls chan chan result
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{calls: make(chan chan result, 16)}
}

func (g *gatedFetch) fetch(ctx context.Context) (string, error) {
	reply := make(chan result, 1)
	g.calls <- reply
	select {
	case r := <-reply:
		return r.data, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedFetch) next(t *testing.T) chan result {
	t.Helper()
	select {
	case reply := <-g.calls:
		return reply
	case <-time.After(waitFor):
		t.Fatal("fetch was not called")
		return nil
	}
}

func TestPoller_StartFetchesImmediatelyThenOnTick(t *testing.T) {
	var calls atomic.Int32
	p := New("test", time.Hour, func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, nil)
	ft, created := withFakeTicker(p)

	require.Equal(t, Idle, p.Snapshot().State())
	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrRunning)

	require.Eventually(t, func() bool { return p.Snapshot().State() == Ready }, waitFor, tick)
	require.Equal(t, 1, p.Snapshot().Data)

	ft.c <- time.Now()
	require.Eventually(t, func() bool { return p.Snapshot().Data == 2 }, waitFor, tick)

	p.Stop()
	require.True(t, ft.stopped.Load())
	require.Equal(t, int32(1), created.Load())
}

func TestPoller_FailedPollKeepsData(t *testing.T) {
	fail := errors.New("backend down")
	var calls atomic.Int32
	p := New("test", time.Hour, func(ctx context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			return []string{"a", "b"}, nil
		}
		return nil, fail
	}, nil)
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx))
	loadedAt := p.Snapshot().UpdatedAt

	require.ErrorIs(t, p.Refresh(ctx), fail)
	snap := p.Snapshot()
	require.Equal(t, []string{"a", "b"}, snap.Data)
	require.True(t, snap.Loaded)
	require.False(t, snap.Loading)
	require.ErrorIs(t, snap.Err, fail)
	require.Equal(t, Failed, snap.State())
	require.Equal(t, loadedAt, snap.UpdatedAt)
}

func TestPoller_DiscardsOutOfOrderCompletion(t *testing.T) {
	g := newGatedFetch()
	p := New("test", time.Hour, g.fetch, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = p.Refresh(ctx) }()
	older := g.next(t)
	go func() { defer wg.Done(); _ = p.Refresh(ctx) }()
	newer := g.next(t)

	newer <- result{data: "new"}
	require.Eventually(t, func() bool { return p.Snapshot().Data == "new" }, waitFor, tick)
	require.True(t, p.Snapshot().Loading)

	older <- result{data: "old"}
	wg.Wait()

	snap := p.Snapshot()
	require.Equal(t, "new", snap.Data)
	require.False(t, snap.Loading)
}

func TestPoller_StaleFailureDoesNotMarkError(t *testing.T) {
	g := newGatedFetch()
	p := New("test", time.Hour, g.fetch, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = p.Refresh(ctx) }()
	older := g.next(t)
	go func() { defer wg.Done(); _ = p.Refresh(ctx) }()
	newer := g.next(t)

	newer <- result{data: "fresh"}
	older <- result{err: errors.New("timeout")}
	wg.Wait()

	require.NoError(t, p.Snapshot().Err)
	require.Equal(t, Ready, p.Snapshot().State())
}

func TestPoller_StopBeforeInflightResolves(t *testing.T) {
	g := newGatedFetch()
	p := New("test", time.Hour, g.fetch, nil)
	withFakeTicker(p)

	var afterStop atomic.Bool
	var lateUpdates atomic.Int32
	p.Subscribe(func(Snapshot[string]) {
		if afterStop.Load() {
			lateUpdates.Add(1)
		}
	})

	require.NoError(t, p.Start(context.Background()))
	g.next(t) // loop's immediate fetch, answered by cancellation

	refreshed := make(chan error, 1)
	go func() { refreshed <- p.Refresh(context.Background()) }()
	pending := g.next(t)

	p.Stop()
	afterStop.Store(true)

	pending <- result{data: "late"}
	require.NoError(t, <-refreshed)

	snap := p.Snapshot()
	require.False(t, snap.Loaded)
	require.Empty(t, snap.Data)
	require.Zero(t, lateUpdates.Load())

	require.ErrorIs(t, p.Refresh(context.Background()), ErrStopped)
	require.Zero(t, lateUpdates.Load())
}

func TestPoller_RefreshDoesNotDuplicateTimer(t *testing.T) {
	var calls atomic.Int32
	p := New("test", time.Hour, func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, nil)
	_, created := withFakeTicker(p)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Refresh(context.Background()))
	}
	require.Equal(t, int32(4), calls.Load())
	require.Equal(t, int32(1), created.Load())
}

func TestPoller_MutateSupersedesEarlierPoll(t *testing.T) {
	g := newGatedFetch()
	p := New("test", time.Hour, g.fetch, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() { defer close(done); _ = p.Refresh(ctx) }()
	reply := g.next(t)

	p.Mutate(func(string) string { return "optimistic" })
	require.Equal(t, "optimistic", p.Snapshot().Data)

	reply <- result{data: "before-mutation"}
	<-done
	require.Equal(t, "optimistic", p.Snapshot().Data)
	require.False(t, p.Snapshot().Loading)
}

func TestPoller_SubscribeAndCancel(t *testing.T) {
	p := New("test", time.Hour, func(ctx context.Context) (string, error) {
		return "x", nil
	}, nil)

	var states []State
	cancel := p.Subscribe(func(s Snapshot[string]) { states = append(states, s.State()) })

	require.NoError(t, p.Refresh(context.Background()))
	require.Equal(t, []State{Loading, Ready}, states)

	cancel()
	require.NoError(t, p.Refresh(context.Background()))
	require.Len(t, states, 2)
}

func TestPoller_StartAfterStop(t *testing.T) {
	var calls atomic.Int32
	p := New("test", time.Hour, func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, nil)
	withFakeTicker(p)

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return p.Snapshot().Loaded }, waitFor, tick)
	p.Stop()
	p.Stop()

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	p.Stop()
}
