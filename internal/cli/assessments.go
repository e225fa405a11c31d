package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/spf13/cobra"
)

var (
	assessmentType string
	draftFile      string
	ihrAnswers     []string
	rraRisk        string
	rraConfidence  string
	rraRecommend   []string
	rraUncertain   []string
	outcome        string
	justification  string
)

var assessmentsCmd = &cobra.Command{
	Use:     "assessments",
	Aliases: []string{"assessment"},
	Short:   "Create, edit and complete assessments",
}

var assessmentsCreateCmd = &cobra.Command{
	Use:   "create <signal-id>",
	Short: "Open an assessment on a signal",
	Long: `Open an IHR Annex 2 or Rapid Risk Assessment on a signal.

Example:
  ghitriage assessments create <signal-id> --type RRA`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			created, err := a.client.CreateAssessment(cmd.Context(), args[0], model.AssessmentType(assessmentType))
			if err != nil {
				return err
			}
			return emit(created, func() { render.Assessment(cmd.OutOrStdout(), created) })
		})
	},
}

var assessmentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			got, err := a.client.GetAssessment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(got, func() { render.Assessment(cmd.OutOrStdout(), got) })
		})
	},
}

var assessmentsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Save answers to an assessment",
	Long: `Save a partial update. Fields not given are left untouched.

IHR answers are given as question=yes|no, RRA fields by flag, or a full
draft as a JSON file of assessment fields.

Example:
  ghitriage assessments update <id> --ihr 1=yes --ihr 2=no
  ghitriage assessments update <id> --risk High --confidence Moderate --recommend "Enhance surveillance"
  ghitriage assessments update <id> --from-file draft.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := buildUpdate(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), true, func(a *app) error {
			saved, err := a.client.UpdateAssessment(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			if draftFile != "" {
				if err := writeDraft(draftFile, update.Reconcile(saved)); err != nil {
					a.logger.Warn("could not write reconciled draft", "path", draftFile, "error", err)
				}
			}
			return emit(saved, func() { render.Assessment(cmd.OutOrStdout(), saved) })
		})
	},
}

var assessmentsCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Archive or escalate an assessment",
	Long: `Finalize an assessment. A justification is always required.

Example:
  ghitriage assessments complete <id> --outcome escalate --justification "Cross-border spread likely"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			done, err := a.client.CompleteAssessment(cmd.Context(), args[0], model.CompleteRequest{
				Outcome:       model.Outcome(outcome),
				Justification: justification,
			})
			if err != nil {
				return err
			}
			return emit(done, func() {
				render.Success(cmd.OutOrStdout(), "assessment %s completed (%s)", done.ID, outcome)
			})
		})
	},
}

// buildUpdate merges the draft file with flag values; flags win
func buildUpdate(cmd *cobra.Command) (model.AssessmentUpdate, error) {
	var u model.AssessmentUpdate
	if draftFile != "" {
		data, err := os.ReadFile(draftFile)
		if err != nil {
			return u, fmt.Errorf("read draft: %w", err)
		}
		if err := json.Unmarshal(data, &u); err != nil {
			return u, fmt.Errorf("parse draft: %w", err)
		}
	}

	for _, answer := range ihrAnswers {
		q, val, ok := strings.Cut(answer, "=")
		if !ok {
			return u, fmt.Errorf("--ihr wants question=yes|no, got %q", answer)
		}
		var b bool
		switch strings.ToLower(val) {
		case "yes", "y", "true":
			b = true
		case "no", "n", "false":
		default:
			return u, fmt.Errorf("--ihr answer must be yes or no, got %q", val)
		}
		switch q {
		case "1":
			u.IHRQuestion1 = &b
		case "2":
			u.IHRQuestion2 = &b
		case "3":
			u.IHRQuestion3 = &b
		case "4":
			u.IHRQuestion4 = &b
		default:
			return u, fmt.Errorf("--ihr question must be 1-4, got %q", q)
		}
	}

	if cmd.Flags().Changed("risk") {
		u.RRAOverallRisk = &rraRisk
	}
	if cmd.Flags().Changed("confidence") {
		u.RRAConfidenceLevel = &rraConfidence
	}
	if len(rraRecommend) > 0 {
		u.RRARecommendations = rraRecommend
	}
	if len(rraUncertain) > 0 {
		u.RRAKeyUncertainties = rraUncertain
	}
	return u, nil
}

func writeDraft(path string, u model.AssessmentUpdate) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func init() {
	rootCmd.AddCommand(assessmentsCmd)
	assessmentsCmd.AddCommand(assessmentsCreateCmd, assessmentsGetCmd, assessmentsUpdateCmd, assessmentsCompleteCmd)

	assessmentsCreateCmd.Flags().StringVarP(&assessmentType, "type", "t", string(model.AssessmentIHR), `assessment type ("IHR Annex 2" or RRA)`)

	assessmentsUpdateCmd.Flags().StringVarP(&draftFile, "from-file", "f", "", "JSON draft; rewritten with the saved values")
	assessmentsUpdateCmd.Flags().StringArrayVar(&ihrAnswers, "ihr", nil, "IHR answer as question=yes|no (repeatable)")
	assessmentsUpdateCmd.Flags().StringVar(&rraRisk, "risk", "", "RRA overall risk")
	assessmentsUpdateCmd.Flags().StringVar(&rraConfidence, "confidence", "", "RRA confidence level")
	assessmentsUpdateCmd.Flags().StringArrayVar(&rraRecommend, "recommend", nil, "RRA recommendation (repeatable)")
	assessmentsUpdateCmd.Flags().StringArrayVar(&rraUncertain, "uncertainty", nil, "RRA key uncertainty (repeatable)")

	assessmentsCompleteCmd.Flags().StringVar(&outcome, "outcome", "", "archive or escalate")
	assessmentsCompleteCmd.Flags().StringVar(&justification, "justification", "", "reason for the outcome")
	_ = assessmentsCompleteCmd.MarkFlagRequired("outcome")
}
