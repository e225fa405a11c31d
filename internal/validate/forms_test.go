package validate

import (
	"errors"
	"testing"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDecision(t *testing.T) {
	tests := []struct {
		name    string
		d       model.DirectorDecision
		wantErr bool
	}{
		{"approve without actions", model.DirectorDecision{Decision: model.DecisionApprove}, true},
		{"approve with blank action", model.DirectorDecision{Decision: model.DecisionApprove, ActionsTaken: []string{"  "}}, true},
		{"approve with action", model.DirectorDecision{Decision: model.DecisionApprove, ActionsTaken: []string{"Deploy RRT"}}, false},
		{"reject without actions", model.DirectorDecision{Decision: model.DecisionReject}, false},
		{"more info", model.DirectorDecision{Decision: model.DecisionRequestMoreInfo}, false},
		{"unknown decision", model.DirectorDecision{Decision: "maybe"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decision(tt.d)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCompletion(t *testing.T) {
	require.NoError(t, Completion(model.CompleteRequest{Outcome: model.OutcomeArchive, Justification: "No spread"}))

	err := Completion(model.CompleteRequest{Outcome: model.OutcomeEscalate, Justification: "   "})
	require.ErrorIs(t, err, ErrInvalid)
	var errs Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	require.Equal(t, "justification", errs[0].Field)

	err = Completion(model.CompleteRequest{Outcome: "defer"})
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 2)
}

func TestID(t *testing.T) {
	require.NoError(t, ID("signal_id", "5b0b7c2e-3c1e-4a55-9d7a-0f8e5f2d8a11"))
	require.ErrorIs(t, ID("signal_id", ""), ErrInvalid)
	require.ErrorIs(t, ID("signal_id", "../admin"), ErrInvalid)
}

func TestAssessmentUpdate(t *testing.T) {
	risk := "Severe"
	conf := "High"
	err := AssessmentUpdate(model.AssessmentUpdate{RRAOverallRisk: &risk, RRAConfidenceLevel: &conf})
	var errs Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	require.Equal(t, "rra_overall_risk", errs[0].Field)

	risk = "Moderate"
	require.NoError(t, AssessmentUpdate(model.AssessmentUpdate{RRAOverallRisk: &risk}))
}

func TestCredentialsAndType(t *testing.T) {
	require.Error(t, Credentials("", ""))
	require.NoError(t, Credentials("analyst@ghi.gov", "secret"))
	require.NoError(t, AssessmentType(model.AssessmentRRA))
	require.Error(t, AssessmentType("JEE"))
}
