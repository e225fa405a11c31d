package cli

import (
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/poller"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/spf13/cobra"
)

var (
	mapStatus      string
	mapMinPriority float64
)

var beaconCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Inspect and trigger Beacon ingestion",
}

var beaconStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ingestion job state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			st, err := a.client.ScraperStatus(cmd.Context())
			if err != nil {
				return err
			}
			return emit(st, func() { render.ScraperStatus(cmd.OutOrStdout(), *st, false, nil) })
		})
	},
}

var beaconSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ask the backend to poll Beacon now",
	Long: `Trigger an ingestion sync and show the refreshed job state. The backend
refuses while a sync is running (409) or while rate limited (429).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			feed := poller.NewScraperFeed(a.client, a.cfg.Polling.ScraperStatus, a.logger)

			res, err := feed.TriggerSync(cmd.Context())
			if err != nil {
				return err
			}
			snap := feed.Snapshot()
			return emit(res, func() {
				render.Success(cmd.OutOrStdout(), "%s", res.Message)
				render.ScraperStatus(cmd.OutOrStdout(), snap.Data, feed.Syncing(), feed.SyncErr())
			})
		})
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show geocoded signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			data, err := a.client.MapData(cmd.Context(), mapFilter(cmd))
			if err != nil {
				return err
			}
			return emit(data, func() { render.MapData(cmd.OutOrStdout(), *data) })
		})
	},
}

func mapFilter(cmd *cobra.Command) model.MapFilter {
	f := model.MapFilter{Status: mapStatus}
	if cmd.Flags().Changed("min-priority") {
		p := mapMinPriority
		f.MinPriority = &p
	}
	return f
}

func init() {
	rootCmd.AddCommand(beaconCmd, mapCmd)
	beaconCmd.AddCommand(beaconStatusCmd, beaconSyncCmd)

	mapCmd.Flags().StringVar(&mapStatus, "status", "", "triage status")
	mapCmd.Flags().Float64Var(&mapMinPriority, "min-priority", 0, "minimum priority score")
}
