package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/ghitriage/internal/model"
)

// ID checks that a path identifier is a UUID
func ID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid id", id)}
	}
	return nil
}

// Credentials checks the login form
func Credentials(username, password string) error {
	var errs Errors
	if strings.TrimSpace(username) == "" {
		errs.add("username", "is required")
	}
	if password == "" {
		errs.add("password", "is required")
	}
	return errs.Err()
}

// AssessmentType checks the questionnaire kind
func AssessmentType(t model.AssessmentType) error {
	switch t {
	case model.AssessmentIHR, model.AssessmentRRA:
		return nil
	}
	return &ValidationError{
		Field:   "assessment_type",
		Message: fmt.Sprintf("must be %q or %q", model.AssessmentIHR, model.AssessmentRRA),
	}
}

// AssessmentUpdate checks enumerated RRA fields on a draft
func AssessmentUpdate(u model.AssessmentUpdate) error {
	var errs Errors
	if u.RRAOverallRisk != nil && !slices.Contains(model.RRAOverallRisks, *u.RRAOverallRisk) {
		errs.add("rra_overall_risk", "must be one of "+strings.Join(model.RRAOverallRisks, ", "))
	}
	if u.RRAConfidenceLevel != nil && !slices.Contains(model.RRAConfidenceLevels, *u.RRAConfidenceLevel) {
		errs.add("rra_confidence_level", "must be one of "+strings.Join(model.RRAConfidenceLevels, ", "))
	}
	for i, s := range u.RRAKeyUncertainties {
		if strings.TrimSpace(s) == "" {
			errs.add(fmt.Sprintf("rra_key_uncertainties[%d]", i), "must not be blank")
		}
	}
	for i, s := range u.RRARecommendations {
		if strings.TrimSpace(s) == "" {
			errs.add(fmt.Sprintf("rra_recommendations[%d]", i), "must not be blank")
		}
	}
	return errs.Err()
}

// Completion requires a justification before archive or escalate
func Completion(req model.CompleteRequest) error {
	var errs Errors
	switch req.Outcome {
	case model.OutcomeArchive, model.OutcomeEscalate:
	default:
		errs.add("outcome", fmt.Sprintf("must be %q or %q", model.OutcomeArchive, model.OutcomeEscalate))
	}
	if strings.TrimSpace(req.Justification) == "" {
		errs.add("justification", "is required")
	}
	return errs.Err()
}

// Decision checks a director decision. Approving requires at least one
// action taken.
func Decision(d model.DirectorDecision) error {
	var errs Errors
	switch d.Decision {
	case model.DecisionApprove:
		if countNonBlank(d.ActionsTaken) == 0 {
			errs.add("actions_taken", "at least one action is required to approve")
		}
	case model.DecisionReject, model.DecisionRequestMoreInfo:
	default:
		errs.add("director_decision", fmt.Sprintf("must be %q, %q or %q",
			model.DecisionApprove, model.DecisionReject, model.DecisionRequestMoreInfo))
	}
	return errs.Err()
}

func countNonBlank(items []string) int {
	n := 0
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
