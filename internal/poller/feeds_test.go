package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/ghitriage/internal/api"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/testserver"
	"github.com/stretchr/testify/require"
)

type fakeInbox struct {
	mu         sync.Mutex
	items      []model.Notification
	count      int
	listArgs   [][2]any
	markErr    error
	markGate   chan struct{}
	markCalled chan string
}

func (f *fakeInbox) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listArgs = append(f.listArgs, [2]any{limit, unreadOnly})
	return append([]model.Notification(nil), f.items...), nil
}

func (f *fakeInbox) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeInbox) MarkNotificationRead(ctx context.Context, id string) (*model.Notification, error) {
	if f.markCalled != nil {
		f.markCalled <- id
	}
	if f.markGate != nil {
		<-f.markGate
	}
	if f.markErr != nil {
		return nil, f.markErr
	}
	return &model.Notification{ID: id, Read: true}, nil
}

func (f *fakeInbox) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}
	return f.count, nil
}

func seededInbox() *fakeInbox {
	return &fakeInbox{
		items: []model.Notification{
			{ID: "n1", Title: "New signal"},
			{ID: "n2", Title: "Assigned"},
			{ID: "n3", Title: "Reminder", Read: true},
		},
		count: 2,
	}
}

func TestNotificationFeed_FetchesListAndCount(t *testing.T) {
	src := seededInbox()
	f := NewNotificationFeed(src, time.Hour, nil)

	require.NoError(t, f.Refresh(context.Background()))
	snap := f.Snapshot()
	require.Len(t, snap.Data.Items, 3)
	require.Equal(t, 2, snap.Data.UnreadCount)
	require.Equal(t, [][2]any{{NotificationLimit, false}}, src.listArgs)
}

func TestNotificationFeed_MarkReadIsOptimistic(t *testing.T) {
	src := seededInbox()
	src.markGate = make(chan struct{})
	src.markCalled = make(chan string, 1)
	f := NewNotificationFeed(src, time.Hour, nil)
	require.NoError(t, f.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- f.MarkRead(context.Background(), "n1") }()

	// The write is in flight and unresolved
	require.Equal(t, "n1", <-src.markCalled)

	snap := f.Snapshot()
	require.True(t, snap.Data.Items[0].Read)
	require.NotNil(t, snap.Data.Items[0].ReadAt)
	require.False(t, snap.Data.Items[1].Read)
	require.Equal(t, 1, snap.Data.UnreadCount)

	close(src.markGate)
	require.NoError(t, <-done)
}

func TestNotificationFeed_MarkReadFloorsAtZero(t *testing.T) {
	src := &fakeInbox{items: []model.Notification{{ID: "n1", Read: true}}}
	f := NewNotificationFeed(src, time.Hour, nil)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.MarkRead(context.Background(), "n1"))
	require.Zero(t, f.Snapshot().Data.UnreadCount)
}

func TestNotificationFeed_FailedWriteIsNotRolledBack(t *testing.T) {
	src := seededInbox()
	src.markErr = errors.New("503")
	f := NewNotificationFeed(src, time.Hour, nil)
	require.NoError(t, f.Refresh(context.Background()))

	err := f.MarkRead(context.Background(), "n2")
	require.ErrorIs(t, err, src.markErr)

	snap := f.Snapshot()
	require.True(t, snap.Data.Items[1].Read)
	require.Equal(t, 1, snap.Data.UnreadCount)

	_, err = f.MarkAllRead(context.Background())
	require.Error(t, err)
	require.Zero(t, f.Snapshot().Data.UnreadCount)
}

func TestNotificationFeed_MarkAllRead(t *testing.T) {
	src := seededInbox()
	f := NewNotificationFeed(src, time.Hour, nil)
	require.NoError(t, f.Refresh(context.Background()))
	before := f.Snapshot().Data

	n, err := f.MarkAllRead(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	snap := f.Snapshot()
	require.Zero(t, snap.Data.UnreadCount)
	for _, item := range snap.Data.Items {
		require.True(t, item.Read)
	}
	// The previous snapshot is not mutated in place
	require.False(t, before.Items[0].Read)
}

func newClient(t *testing.T, srv *testserver.Server, username string) *api.Client {
	t.Helper()
	tokens := &staticTokens{token: srv.IssueToken(username)}
	c, err := api.New(api.Options{BaseURL: srv.URL()}, tokens)
	require.NoError(t, err)
	return c
}

type staticTokens struct{ token string }

func (s *staticTokens) Token() string            { return s.token }
func (s *staticTokens) Expire(token string) bool { return false }

func TestSignalFeed_Filter(t *testing.T) {
	srv := testserver.New(t)
	c := newClient(t, srv, testserver.AnalystUsername)
	f := NewSignalFeed(c, model.SignalFilter{}, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx))
	require.Len(t, f.Snapshot().Data, 5)

	require.NoError(t, f.SetFilter(ctx, model.SignalFilter{Status: model.TriagePending}))
	require.Len(t, f.Snapshot().Data, 2)
	require.Equal(t, model.TriagePending, srv.LastQuery(testserver.RouteSignals).Get("status"))
}

func TestSignalFeed_ErrorKeepsList(t *testing.T) {
	srv := testserver.New(t)
	c := newClient(t, srv, testserver.AnalystUsername)
	f := NewSignalFeed(c, model.SignalFilter{}, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx))
	srv.Fail(testserver.RouteSignals, http.StatusInternalServerError)

	err := f.Refresh(ctx)
	require.Equal(t, http.StatusInternalServerError, api.StatusCode(err))
	snap := f.Snapshot()
	require.Len(t, snap.Data, 5)
	require.Equal(t, Failed, snap.State())
}

func TestScraperFeed_TriggerSync(t *testing.T) {
	srv := testserver.New(t)
	c := newClient(t, srv, testserver.AnalystUsername)
	f := NewScraperFeed(c, time.Hour, nil)
	ctx := context.Background()

	res, err := f.TriggerSync(ctx)
	require.NoError(t, err)
	require.Equal(t, "started", res.Status)
	require.NoError(t, f.SyncErr())
	require.False(t, f.Syncing())
	require.Equal(t, 1, srv.Hits(testserver.RoutePollBeacon))
	require.Equal(t, 1, srv.Hits(testserver.RouteScraperStatus))
	require.NotNil(t, f.Snapshot().Data.LastSyncAt)
}

func TestScraperFeed_SyncFailureIsSeparateFromPollError(t *testing.T) {
	srv := testserver.New(t)
	c := newClient(t, srv, testserver.AnalystUsername)
	f := NewScraperFeed(c, time.Hour, nil)
	ctx := context.Background()
	require.NoError(t, f.Refresh(ctx))

	srv.SetScraperStatus(model.ScraperStatus{IsActive: true})
	_, err := f.TriggerSync(ctx)
	require.Equal(t, http.StatusConflict, api.StatusCode(err))
	require.Equal(t, http.StatusConflict, api.StatusCode(f.SyncErr()))
	require.NoError(t, f.Snapshot().Err)
	require.Equal(t, 1, srv.Hits(testserver.RouteScraperStatus))
}

func TestMapFeed(t *testing.T) {
	srv := testserver.New(t)
	c := newClient(t, srv, testserver.AnalystUsername)
	f := NewMapFeed(c, model.MapFilter{Status: model.TriagePending}, time.Hour, nil)

	require.NoError(t, f.Refresh(context.Background()))
	data := f.Snapshot().Data
	require.Len(t, data.Markers, 2)
	require.Len(t, data.HeatmapPoints, 2)
	for _, p := range data.HeatmapPoints {
		require.LessOrEqual(t, p.Intensity, 1.0)
	}
}

func TestFeedsSatisfyFeed(t *testing.T) {
	var _ Feed = &SignalFeed{}
	var _ Feed = &NotificationFeed{}
	var _ Feed = &ScraperFeed{}
	var _ Feed = NewMapFeed(nil, model.MapFilter{}, time.Second, nil)
}
