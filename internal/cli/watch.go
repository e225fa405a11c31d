package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/poller"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/ppiankov/ghitriage/internal/session"
	"github.com/spf13/cobra"
)

var watchFilter model.SignalFilter

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow signals, notifications, ingestion and map data live",
	Long: `Start all four feeds and print each update until interrupted. Every feed
polls on its own interval (see polling.* in the config). If the session
expires, all feeds stop and you are asked to log in again.

Example:
  ghitriage watch --status "Pending Triage"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			return runWatch(cmd.Context(), a, cmd.OutOrStdout())
		})
	},
}

func runWatch(ctx context.Context, a *app, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	expired := make(chan struct{})
	var once sync.Once
	unsubscribe := a.session.Subscribe(func(ev session.Event) {
		if ev == session.EventExpired || ev == session.EventLogout {
			once.Do(func() { close(expired) })
		}
	})
	defer unsubscribe()

	// Feeds print from their own goroutines
	var mu sync.Mutex
	printer := func(fn func(w io.Writer)) {
		mu.Lock()
		defer mu.Unlock()
		fn(out)
	}

	signals := poller.NewSignalFeed(a.client, watchFilter, a.cfg.Polling.Signals, a.logger)
	notifications := poller.NewNotificationFeed(a.client, a.cfg.Polling.Notifications, a.logger)
	scraper := poller.NewScraperFeed(a.client, a.cfg.Polling.ScraperStatus, a.logger)
	mapData := poller.NewMapFeed(a.client, model.MapFilter{Status: watchFilter.Status}, a.cfg.Polling.MapData, a.logger)

	signals.Subscribe(func(s poller.Snapshot[[]model.Signal]) {
		if s.Loading {
			return
		}
		printer(func(w io.Writer) {
			fmt.Fprintln(w, render.FeedStatus("signals", s.State().String(), s.Err, s.UpdatedAt))
			render.Signals(w, s.Data)
		})
	})
	notifications.Subscribe(func(s poller.Snapshot[model.Inbox]) {
		if s.Loading {
			return
		}
		printer(func(w io.Writer) {
			fmt.Fprintln(w, render.FeedStatus("notifications", s.State().String(), s.Err, s.UpdatedAt))
			render.Notifications(w, s.Data)
		})
	})
	scraper.Subscribe(func(s poller.Snapshot[model.ScraperStatus]) {
		if s.Loading {
			return
		}
		printer(func(w io.Writer) {
			fmt.Fprintln(w, render.FeedStatus("beacon", s.State().String(), s.Err, s.UpdatedAt))
			render.ScraperStatus(w, s.Data, scraper.Syncing(), scraper.SyncErr())
		})
	})
	mapData.Subscribe(func(s poller.Snapshot[model.MapData]) {
		if s.Loading {
			return
		}
		printer(func(w io.Writer) {
			fmt.Fprintln(w, render.FeedStatus("map", s.State().String(), s.Err, s.UpdatedAt))
			render.MapData(w, s.Data)
		})
	})

	feeds := []poller.Feed{signals, notifications, scraper, mapData}
	for _, f := range feeds {
		if err := f.Start(ctx); err != nil {
			return fmt.Errorf("start %s feed: %w", f.Name(), err)
		}
	}
	defer func() {
		for _, f := range feeds {
			f.Stop()
		}
	}()

	a.logger.Debug("watching", "feeds", len(feeds))

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-expired:
		return errSessionEnded
	}
}

var errSessionEnded = fmt.Errorf("session ended while watching: %w", errNotLoggedIn)

func init() {
	rootCmd.AddCommand(watchCmd)
	addSignalFilterFlags(watchCmd, &watchFilter)
}
