package cli

import (
	"fmt"

	"github.com/ppiankov/ghitriage/internal/api"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/poller"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/spf13/cobra"
)

var (
	unreadOnly bool
	notifLimit int
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif", "inbox"},
	Short:   "Read and acknowledge notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			items, err := a.client.ListNotifications(cmd.Context(), notifLimit, unreadOnly)
			if err != nil {
				return err
			}
			count, err := a.client.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			inbox := model.Inbox{Items: items, UnreadCount: count}
			return emit(inbox, func() { render.Notifications(cmd.OutOrStdout(), inbox) })
		})
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the unread count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			count, err := a.client.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			return emit(map[string]int{"count": count}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), count)
			})
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			feed := poller.NewNotificationFeed(a.client, a.cfg.Polling.Notifications, a.logger)
			if err := feed.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := feed.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			inbox := feed.Snapshot().Data
			return emit(inbox, func() { render.Notifications(cmd.OutOrStdout(), inbox) })
		})
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification read",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			n, err := a.client.MarkAllNotificationsRead(cmd.Context())
			if err != nil {
				return err
			}
			return emit(map[string]int{"marked_read": n}, func() {
				render.Success(cmd.OutOrStdout(), "marked %d notifications read", n)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsCountCmd, notificationsReadCmd, notificationsReadAllCmd)

	notificationsListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	notificationsListCmd.Flags().IntVar(&notifLimit, "limit", api.DefaultNotificationLimit, "maximum notifications to fetch")
}
