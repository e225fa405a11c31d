// Package poller keeps server-owned collections fresh by fetching them on
// a fixed interval.
package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned by Refresh after Stop
var ErrStopped = errors.New("poller stopped")

// ErrRunning is returned by Start when the poller is already running
var ErrRunning = errors.New("poller already running")

// State is the feed's load state
type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of a feed. Data survives failed polls.
type Snapshot[T any] struct {
	Data      T
	Loaded    bool
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// State derives the load state from the flags
func (s Snapshot[T]) State() State {
	switch {
	case s.Loading:
		return Loading
	case s.Err != nil:
		return Failed
	case s.Loaded:
		return Ready
	default:
		return Idle
	}
}

// FetchFunc loads the current value
type FetchFunc[T any] func(ctx context.Context) (T, error)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Poller runs fetch immediately on Start and then every interval until
// Stop. Every fetch carries a sequence number; a completion older than the
// last applied one is discarded.
type Poller[T any] struct {
	name     string
	fetch    FetchFunc[T]
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	newTicker func(time.Duration) ticker

	mu       sync.Mutex
	snap     Snapshot[T]
	issued   uint64
	applied  uint64
	inflight int
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}

	// notifyMu orders subscriber calls; taken before mu is released
	notifyMu sync.Mutex
	subs     map[int]func(Snapshot[T])
	nextSub  int
}

// New creates an idle poller
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller[T]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		logger:   logger.With("feed", name),
		now:      time.Now,
		newTicker: func(d time.Duration) ticker {
			return timeTicker{time.NewTicker(d)}
		},
		subs: make(map[int]func(Snapshot[T])),
	}
}

// Name identifies the feed in logs
func (p *Poller[T]) Name() string {
	return p.name
}

// Interval returns the poll interval
func (p *Poller[T]) Interval() time.Duration {
	return p.interval
}

// Start fetches immediately and then on every tick until Stop or ctx ends
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = false
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(ctx, done)
	return nil
}

func (p *Poller[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	_ = p.poll(ctx)

	if p.interval <= 0 {
		<-ctx.Done()
		return
	}

	t := p.newTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			_ = p.poll(ctx)
		}
	}
}

// Stop cancels the timer and waits for the loop to exit. Fetches still in
// flight are discarded when they complete, and subscribers receive nothing
// further. It must not be called from a subscriber.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.applied = p.issued
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	// Wait out a delivery that began before stopped was set
	p.notifyMu.Lock()
	p.notifyMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Refresh fetches now without touching the timer and returns the fetch
// error. A result superseded by a newer fetch or mutation is not applied.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	return p.poll(ctx)
}

// Snapshot returns the current view
func (p *Poller[T]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Subscribe registers fn for every change and returns a cancel func.
// fn must not call Mutate or Refresh synchronously.
func (p *Poller[T]) Subscribe(fn func(Snapshot[T])) func() {
	p.notifyMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.notifyMu.Unlock()

	return func() {
		p.notifyMu.Lock()
		delete(p.subs, id)
		p.notifyMu.Unlock()
	}
}

// Mutate applies fn to the loaded data immediately. Fetches issued before
// the mutation are superseded so they cannot revert it.
func (p *Poller[T]) Mutate(fn func(T) T) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.applied = p.issued
	p.snap.Data = fn(p.snap.Data)
	p.snap.Loading = p.inflight > 0
	p.publishLocked()
}

func (p *Poller[T]) poll(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.issued++
	seq := p.issued
	p.inflight++
	p.snap.Loading = true
	p.publishLocked()

	data, err := p.fetch(ctx)

	p.mu.Lock()
	p.inflight--
	if p.stopped {
		p.mu.Unlock()
		return err
	}
	if seq <= p.applied {
		p.logger.Debug("discarding superseded poll", "seq", seq, "applied", p.applied)
		if p.inflight == 0 && p.snap.Loading {
			p.snap.Loading = false
			p.publishLocked()
		} else {
			p.mu.Unlock()
		}
		return err
	}

	p.applied = seq
	p.snap.Loading = p.inflight > 0
	if err != nil {
		p.snap.Err = err
		p.logger.Warn("poll failed", "error", err)
	} else {
		p.snap.Data = data
		p.snap.Loaded = true
		p.snap.Err = nil
		p.snap.UpdatedAt = p.now()
	}
	p.publishLocked()
	return err
}

// publishLocked releases mu and delivers the snapshot taken under it
func (p *Poller[T]) publishLocked() {
	snap := p.snap
	p.notifyMu.Lock()
	p.mu.Unlock()
	defer p.notifyMu.Unlock()

	for _, fn := range p.subs {
		fn(snap)
	}
}
