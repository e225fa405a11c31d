package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/ghitriage/internal/model"
	"golang.org/x/sync/errgroup"
)

// Feed is the type-erased control surface shared by all feeds
type Feed interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Refresh(ctx context.Context) error
}

// SignalSource lists signals
type SignalSource interface {
	ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.Signal, error)
}

// SignalFeed polls the filtered signal list
type SignalFeed struct {
	*Poller[[]model.Signal]

	mu     sync.RWMutex
	filter model.SignalFilter
}

// NewSignalFeed creates the signal list feed
func NewSignalFeed(src SignalSource, filter model.SignalFilter, interval time.Duration, logger *slog.Logger) *SignalFeed {
	f := &SignalFeed{filter: filter}
	f.Poller = New("signals", interval, func(ctx context.Context) ([]model.Signal, error) {
		return src.ListSignals(ctx, f.Filter())
	}, logger)
	return f
}

// Filter returns the active filter
func (f *SignalFeed) Filter() model.SignalFilter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter
}

// SetFilter replaces the filter and refetches. Polls issued under the old
// filter are superseded by the refetch.
func (f *SignalFeed) SetFilter(ctx context.Context, filter model.SignalFilter) error {
	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	return f.Refresh(ctx)
}

// NotificationSource reads and acknowledges notifications
type NotificationSource interface {
	ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) (int, error)
}

// NotificationLimit is how many notifications each poll fetches
const NotificationLimit = 50

// NotificationFeed polls the inbox and unread count together and applies
// read acknowledgements optimistically
type NotificationFeed struct {
	*Poller[model.Inbox]

	src    NotificationSource
	logger *slog.Logger
	now    func() time.Time
}

// NewNotificationFeed creates the inbox feed
func NewNotificationFeed(src NotificationSource, interval time.Duration, logger *slog.Logger) *NotificationFeed {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &NotificationFeed{src: src, logger: logger.With("feed", "notifications"), now: time.Now}
	f.Poller = New("notifications", interval, f.fetch, logger)
	return f
}

func (f *NotificationFeed) fetch(ctx context.Context) (model.Inbox, error) {
	var (
		items []model.Notification
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = f.src.ListNotifications(gctx, NotificationLimit, false)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = f.src.UnreadCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Inbox{}, err
	}
	return model.Inbox{Items: items, UnreadCount: count}, nil
}

// MarkRead flips the notification to read and decrements the unread count
// before the write is sent. A failed write is logged and returned; the
// local change is kept until the next poll.
func (f *NotificationFeed) MarkRead(ctx context.Context, id string) error {
	readAt := model.NewTimestamp(f.now())
	f.Mutate(func(in model.Inbox) model.Inbox {
		out := in.Clone()
		for i := range out.Items {
			if out.Items[i].ID == id {
				out.Items[i].Read = true
				out.Items[i].ReadAt = &readAt
			}
		}
		out.UnreadCount = max(0, out.UnreadCount-1)
		return out
	})

	if _, err := f.src.MarkNotificationRead(ctx, id); err != nil {
		f.logger.Warn("mark notification read failed", "id", id, "error", err)
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every loaded notification read and zeroes the count
// before the write is sent
func (f *NotificationFeed) MarkAllRead(ctx context.Context) (int, error) {
	readAt := model.NewTimestamp(f.now())
	f.Mutate(func(in model.Inbox) model.Inbox {
		out := in.Clone()
		for i := range out.Items {
			if !out.Items[i].Read {
				out.Items[i].Read = true
				out.Items[i].ReadAt = &readAt
			}
		}
		out.UnreadCount = 0
		return out
	})

	n, err := f.src.MarkAllNotificationsRead(ctx)
	if err != nil {
		f.logger.Warn("mark all notifications read failed", "error", err)
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

// ScraperSource reports and triggers Beacon ingestion
type ScraperSource interface {
	ScraperStatus(ctx context.Context) (*model.ScraperStatus, error)
	PollBeacon(ctx context.Context) (*model.BeaconSyncResult, error)
}

// ScraperFeed polls the ingestion status and can trigger a sync
type ScraperFeed struct {
	*Poller[model.ScraperStatus]

	src ScraperSource

	mu      sync.Mutex
	syncing bool
	syncErr error
}

// NewScraperFeed creates the scraper status feed
func NewScraperFeed(src ScraperSource, interval time.Duration, logger *slog.Logger) *ScraperFeed {
	f := &ScraperFeed{src: src}
	f.Poller = New("scraper-status", interval, func(ctx context.Context) (model.ScraperStatus, error) {
		st, err := src.ScraperStatus(ctx)
		if err != nil {
			return model.ScraperStatus{}, err
		}
		return *st, nil
	}, logger)
	return f
}

// Syncing reports whether TriggerSync is in progress
func (f *ScraperFeed) Syncing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncing
}

// SyncErr returns the error from the last TriggerSync, if any
func (f *ScraperFeed) SyncErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncErr
}

// TriggerSync asks the backend to poll Beacon and then refreshes the
// status. Sync failures are tracked apart from poll failures.
func (f *ScraperFeed) TriggerSync(ctx context.Context) (*model.BeaconSyncResult, error) {
	f.mu.Lock()
	if f.syncing {
		f.mu.Unlock()
		return nil, fmt.Errorf("sync already in progress")
	}
	f.syncing = true
	f.syncErr = nil
	f.mu.Unlock()

	res, err := f.src.PollBeacon(ctx)

	f.mu.Lock()
	f.syncing = false
	f.syncErr = err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if rerr := f.Refresh(ctx); rerr != nil && !errors.Is(rerr, ErrStopped) {
		return res, fmt.Errorf("refresh scraper status: %w", rerr)
	}
	return res, nil
}

// MapSource returns geocoded signals
type MapSource interface {
	MapData(ctx context.Context, filter model.MapFilter) (*model.MapData, error)
}

// NewMapFeed creates the map data feed
func NewMapFeed(src MapSource, filter model.MapFilter, interval time.Duration, logger *slog.Logger) *Poller[model.MapData] {
	return New("map-data", interval, func(ctx context.Context) (model.MapData, error) {
		data, err := src.MapData(ctx, filter)
		if err != nil {
			return model.MapData{}, err
		}
		return *data, nil
	}, logger)
}
