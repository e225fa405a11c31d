package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/stretchr/testify/require"
)

// countingFetcher records how many lookups run at once
type countingFetcher struct {
	delay    time.Duration
	fail     map[string]bool
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
	started  chan string
}

func (f *countingFetcher) GetSignal(ctx context.Context, id string) (*model.Signal, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.started != nil {
		f.started <- id
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[id] {
		return nil, errors.New("404 not found")
	}
	return &model.Signal{ID: id}, nil
}

func lookups(f SignalFetcher, ids ...string) []Job {
	jobs := make([]Job, len(ids))
	for i, id := range ids {
		jobs[i] = &LookupJob{ID: id, Fetcher: f}
	}
	return jobs
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, 5, NewPool(ctx, 5).workers)
	require.Equal(t, 1, NewPool(ctx, 0).workers)
	require.Equal(t, 1, NewPool(ctx, -3).workers)
}

func TestPool_RunsEveryJob(t *testing.T) {
	f := &countingFetcher{}
	pool := NewPool(context.Background(), 2)
	pool.Start()

	for _, job := range lookups(f, "a", "b", "c", "d", "e") {
		require.True(t, pool.Submit(job))
	}

	results := pool.Wait()
	require.Len(t, results, 5)
	require.EqualValues(t, 5, f.calls.Load())
}

func TestPool_QueueLargerThanBuffers(t *testing.T) {
	f := &countingFetcher{}
	pool := NewPool(context.Background(), 1)
	pool.Start()

	ids := make([]string, 40)
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}

	done := make(chan []Result, 1)
	go func() {
		for _, job := range lookups(f, ids...) {
			pool.Submit(job)
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		require.Len(t, results, len(ids))
	case <-time.After(2 * time.Second):
		t.Fatal("pool stalled with more lookups than buffer capacity")
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	f := &countingFetcher{delay: 5 * time.Millisecond}
	pool := NewPool(context.Background(), 3)
	pool.Start()

	for _, job := range lookups(f, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j") {
		pool.Submit(job)
	}
	pool.Wait()

	require.EqualValues(t, 10, f.calls.Load())
	require.LessOrEqual(t, f.peak.Load(), int32(3))
}

func TestPool_ReportsPerJobErrors(t *testing.T) {
	f := &countingFetcher{fail: map[string]bool{"missing": true}}
	pool := NewPool(context.Background(), 2)
	pool.Start()

	for _, job := range lookups(f, "ok", "missing") {
		pool.Submit(job)
	}

	failed := 0
	for _, r := range pool.Wait() {
		if r.GetError() != nil {
			failed++
			require.Equal(t, "missing", r.(*LookupResult).ID)
		}
	}
	require.Equal(t, 1, failed)
}

func TestResultCollector_CopiesOut(t *testing.T) {
	c := NewResultCollector()
	c.Add(&LookupResult{ID: "a"})
	c.Add(&LookupResult{ID: "b", Error: errors.New("boom")})

	got := c.Results()
	require.Len(t, got, 2)
	got[0] = nil
	require.NotNil(t, c.Results()[0])
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool, 1)
	go func() { done <- pool.Submit(&LookupJob{ID: "late", Fetcher: &countingFetcher{}}) }()

	select {
	case queued := <-done:
		require.False(t, queued)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}

func TestPool_ShutdownCancelsRunningLookup(t *testing.T) {
	f := &countingFetcher{delay: time.Minute, started: make(chan string, 1)}
	pool := NewPool(context.Background(), 1)
	pool.Start()

	pool.Submit(&LookupJob{ID: "slow", Fetcher: f})
	<-f.started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel the running lookup")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	require.False(t, pool.Submit(&LookupJob{ID: "a", Fetcher: &countingFetcher{}}))
	pool.Shutdown()
}
