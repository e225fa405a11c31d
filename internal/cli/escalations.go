package cli

import (
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/spf13/cobra"
)

var (
	decision      string
	actionsTaken  []string
	directorNotes string
)

var escalationsCmd = &cobra.Command{
	Use:     "escalations",
	Aliases: []string{"escalation"},
	Short:   "Review escalations awaiting a director decision",
}

var escalationsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List escalations awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			items, err := a.client.PendingEscalations(cmd.Context())
			if err != nil {
				return err
			}
			return emit(items, func() { render.Escalations(cmd.OutOrStdout(), items) })
		})
	},
}

var escalationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an escalation with its signal and assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			detail, err := a.client.EscalationDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(detail, func() { render.EscalationDetail(cmd.OutOrStdout(), detail) })
		})
	},
}

var escalationsDecideCmd = &cobra.Command{
	Use:   "decide <id>",
	Short: "Record the director's decision",
	Long: `Approve, reject or request more information on an escalation. Approving
requires at least one action taken.

Example:
  ghitriage escalations decide <id> --decision approve --action "Deploy rapid response team"
  ghitriage escalations decide <id> --decision request_more_info --notes "Need lab confirmation"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			e, err := a.client.SubmitDecision(cmd.Context(), args[0], model.DirectorDecision{
				Decision:      model.Decision(decision),
				ActionsTaken:  actionsTaken,
				DirectorNotes: directorNotes,
			})
			if err != nil {
				return err
			}
			return emit(e, func() {
				render.Success(cmd.OutOrStdout(), "escalation %s: %s", e.ID, e.DirectorStatus)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(escalationsCmd)
	escalationsCmd.AddCommand(escalationsPendingCmd, escalationsShowCmd, escalationsDecideCmd)

	escalationsDecideCmd.Flags().StringVar(&decision, "decision", "", "approve, reject or request_more_info")
	escalationsDecideCmd.Flags().StringArrayVar(&actionsTaken, "action", nil, "action taken (repeatable)")
	escalationsDecideCmd.Flags().StringVar(&directorNotes, "notes", "", "director notes")
	_ = escalationsDecideCmd.MarkFlagRequired("decision")
}
