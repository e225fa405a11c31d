package cli

import (
	"fmt"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/ppiankov/ghitriage/internal/worker"
	"github.com/spf13/cobra"
)

var (
	signalFilter    model.SignalFilter
	idsFile         string
	triageStatus    string
	triageNotes     string
	rejectionReason string
	currentStatus   string
)

var signalsCmd = &cobra.Command{
	Use:     "signals",
	Aliases: []string{"signal"},
	Short:   "List, inspect and triage signals",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List signals, highest priority first",
	Long: `List signals matching the given filters. Empty filters are not sent,
so the backend's defaults apply.

Example:
  ghitriage signals list --status "Pending Triage"
  ghitriage signals list --disease Cholera -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			signals, err := a.client.ListSignals(cmd.Context(), signalFilter)
			if err != nil {
				return err
			}
			return emit(signals, func() { render.Signals(cmd.OutOrStdout(), signals) })
		})
	},
}

var signalsShowCmd = &cobra.Command{
	Use:   "show <id>...",
	Short: "Show one or more signals",
	Long: `Fetch signals by id. Several ids are fetched concurrently within the
configured rate limit.

Example:
  ghitriage signals show 5b0d7c1e-6d4f-4d7e-9a55-0a4f0b1c2d3e
  ghitriage signals show --from-file ids.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := args
		if idsFile != "" {
			fromFile, err := worker.ReadIDsFromFile(idsFile)
			if err != nil {
				return err
			}
			ids = append(ids, fromFile...)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no signal ids given")
		}

		return withApp(cmd.Context(), true, func(a *app) error {
			results := worker.NewBatchLookup(a.client, a.cfg.Concurrency.Workers).Signals(cmd.Context(), ids)

			var (
				found  []model.Signal
				failed int
			)
			for _, r := range results {
				if r.Error != nil {
					failed++
					render.Failure(cmd.ErrOrStderr(), "%s: %v", r.ID, r.Error)
					continue
				}
				found = append(found, *r.Signal)
			}

			if err := emit(found, func() {
				for _, s := range found {
					render.Signal(cmd.OutOrStdout(), s)
				}
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", failed, len(results))
			}
			return nil
		})
	},
}

var signalsFiltersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List valid disease and location filter values",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			opts, err := a.client.SignalFilters(cmd.Context())
			if err != nil {
				return err
			}
			return emit(opts, func() { render.Filters(cmd.OutOrStdout(), opts) })
		})
	},
}

var signalsTriageCmd = &cobra.Command{
	Use:   "triage <id>",
	Short: "Record the initial review of a signal",
	Long: `Record the triage outcome for a signal.

Example:
  ghitriage signals triage <id> --status Rejected --reason "Duplicate report"
  ghitriage signals triage <id> --status "Under Assessment" --notes "Needs RRA"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			err := a.client.TriageSignal(cmd.Context(), args[0], model.TriageUpdate{
				TriageStatus:    triageStatus,
				TriageNotes:     triageNotes,
				RejectionReason: rejectionReason,
				CurrentStatus:   currentStatus,
			})
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "signal %s triaged as %q", args[0], triageStatus)
			return nil
		})
	},
}

func addSignalFilterFlags(cmd *cobra.Command, f *model.SignalFilter) {
	cmd.Flags().StringVar(&f.Status, "status", "", "triage status, e.g. \"Pending Triage\"")
	cmd.Flags().StringVar(&f.Disease, "disease", "", "disease name")
	cmd.Flags().StringVar(&f.Location, "location", "", "country or location")
}

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.AddCommand(signalsListCmd, signalsShowCmd, signalsFiltersCmd, signalsTriageCmd)

	addSignalFilterFlags(signalsListCmd, &signalFilter)

	signalsShowCmd.Flags().StringVarP(&idsFile, "from-file", "f", "", "file with one signal id per line")

	signalsTriageCmd.Flags().StringVar(&triageStatus, "status", "", "new triage status")
	signalsTriageCmd.Flags().StringVar(&triageNotes, "notes", "", "triage notes")
	signalsTriageCmd.Flags().StringVar(&rejectionReason, "reason", "", "rejection reason")
	signalsTriageCmd.Flags().StringVar(&currentStatus, "current-status", "", "current status")
	_ = signalsTriageCmd.MarkFlagRequired("status")
}
