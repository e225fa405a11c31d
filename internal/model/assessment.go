package model

import "encoding/json"

// AssessmentType selects the questionnaire
type AssessmentType string

const (
	AssessmentIHR AssessmentType = "IHR Annex 2"
	AssessmentRRA AssessmentType = "RRA"
)

// Outcome finalizes an assessment
type Outcome string

const (
	OutcomeArchive  Outcome = "archive"
	OutcomeEscalate Outcome = "escalate"
)

// RRA rating scales
var (
	RRAOverallRisks     = []string{"Very Low", "Low", "Moderate", "High", "Very High"}
	RRAConfidenceLevels = []string{"Low", "Moderate", "High"}
)

// Assessment holds either IHR Annex 2 answers or RRA structured fields
type Assessment struct {
	ID             string         `json:"id"`
	SignalID       string         `json:"signal_id"`
	AssessmentType AssessmentType `json:"assessment_type"`

	IHRQuestion1      *bool   `json:"ihr_question_1,omitempty"`
	IHRQuestion1Notes *string `json:"ihr_question_1_notes,omitempty"`
	IHRQuestion2      *bool   `json:"ihr_question_2,omitempty"`
	IHRQuestion2Notes *string `json:"ihr_question_2_notes,omitempty"`
	IHRQuestion3      *bool   `json:"ihr_question_3,omitempty"`
	IHRQuestion3Notes *string `json:"ihr_question_3_notes,omitempty"`
	IHRQuestion4      *bool   `json:"ihr_question_4,omitempty"`
	IHRQuestion4Notes *string `json:"ihr_question_4_notes,omitempty"`
	IHRDecision       *string `json:"ihr_decision,omitempty"`

	RRAHazardAssessment   json.RawMessage `json:"rra_hazard_assessment,omitempty"`
	RRAExposureAssessment json.RawMessage `json:"rra_exposure_assessment,omitempty"`
	RRAContextAssessment  json.RawMessage `json:"rra_context_assessment,omitempty"`
	RRAOverallRisk        *string         `json:"rra_overall_risk,omitempty"`
	RRAConfidenceLevel    *string         `json:"rra_confidence_level,omitempty"`
	RRAKeyUncertainties   []string        `json:"rra_key_uncertainties,omitempty"`
	RRARecommendations    []string        `json:"rra_recommendations,omitempty"`

	Status               string  `json:"status"`
	AssignedTo           string  `json:"assigned_to,omitempty"`
	ReviewedBy           *string `json:"reviewed_by,omitempty"`
	OutcomeDecision      *string `json:"outcome_decision,omitempty"`
	OutcomeJustification *string `json:"outcome_justification,omitempty"`

	CreatedAt   Timestamp  `json:"created_at"`
	StartedAt   *Timestamp `json:"started_at,omitempty"`
	CompletedAt *Timestamp `json:"completed_at,omitempty"`
	UpdatedAt   Timestamp  `json:"updated_at"`
}

// AssessmentCreate is the body of POST /assessments
type AssessmentCreate struct {
	SignalID       string         `json:"signal_id"`
	AssessmentType AssessmentType `json:"assessment_type"`
}

// AssessmentUpdate is a partial update; nil fields are not sent.
// It doubles as the local draft an analyst edits before saving.
type AssessmentUpdate struct {
	IHRQuestion1      *bool   `json:"ihr_question_1,omitempty"`
	IHRQuestion1Notes *string `json:"ihr_question_1_notes,omitempty"`
	IHRQuestion2      *bool   `json:"ihr_question_2,omitempty"`
	IHRQuestion2Notes *string `json:"ihr_question_2_notes,omitempty"`
	IHRQuestion3      *bool   `json:"ihr_question_3,omitempty"`
	IHRQuestion3Notes *string `json:"ihr_question_3_notes,omitempty"`
	IHRQuestion4      *bool   `json:"ihr_question_4,omitempty"`
	IHRQuestion4Notes *string `json:"ihr_question_4_notes,omitempty"`
	IHRDecision       *string `json:"ihr_decision,omitempty"`

	RRAHazardAssessment   json.RawMessage `json:"rra_hazard_assessment,omitempty"`
	RRAExposureAssessment json.RawMessage `json:"rra_exposure_assessment,omitempty"`
	RRAContextAssessment  json.RawMessage `json:"rra_context_assessment,omitempty"`
	RRAOverallRisk        *string         `json:"rra_overall_risk,omitempty"`
	RRAConfidenceLevel    *string         `json:"rra_confidence_level,omitempty"`
	RRAKeyUncertainties   []string        `json:"rra_key_uncertainties,omitempty"`
	RRARecommendations    []string        `json:"rra_recommendations,omitempty"`

	Status *string `json:"status,omitempty"`
}

// CompleteRequest finalizes an assessment
type CompleteRequest struct {
	Outcome       Outcome `json:"outcome"`
	Justification string  `json:"justification"`
}

// Reconcile overlays server truth onto a saved draft: fields the server
// returned win, fields it left empty keep the draft value.
func (u AssessmentUpdate) Reconcile(saved *Assessment) AssessmentUpdate {
	if saved == nil {
		return u
	}
	out := u
	pick := func(server *bool, draft *bool) *bool {
		if server != nil {
			return server
		}
		return draft
	}
	pickStr := func(server *string, draft *string) *string {
		if server != nil {
			return server
		}
		return draft
	}
	out.IHRQuestion1 = pick(saved.IHRQuestion1, u.IHRQuestion1)
	out.IHRQuestion2 = pick(saved.IHRQuestion2, u.IHRQuestion2)
	out.IHRQuestion3 = pick(saved.IHRQuestion3, u.IHRQuestion3)
	out.IHRQuestion4 = pick(saved.IHRQuestion4, u.IHRQuestion4)
	out.IHRQuestion1Notes = pickStr(saved.IHRQuestion1Notes, u.IHRQuestion1Notes)
	out.IHRQuestion2Notes = pickStr(saved.IHRQuestion2Notes, u.IHRQuestion2Notes)
	out.IHRQuestion3Notes = pickStr(saved.IHRQuestion3Notes, u.IHRQuestion3Notes)
	out.IHRQuestion4Notes = pickStr(saved.IHRQuestion4Notes, u.IHRQuestion4Notes)
	out.IHRDecision = pickStr(saved.IHRDecision, u.IHRDecision)
	out.RRAOverallRisk = pickStr(saved.RRAOverallRisk, u.RRAOverallRisk)
	out.RRAConfidenceLevel = pickStr(saved.RRAConfidenceLevel, u.RRAConfidenceLevel)
	if len(saved.RRAHazardAssessment) > 0 {
		out.RRAHazardAssessment = saved.RRAHazardAssessment
	}
	if len(saved.RRAExposureAssessment) > 0 {
		out.RRAExposureAssessment = saved.RRAExposureAssessment
	}
	if len(saved.RRAContextAssessment) > 0 {
		out.RRAContextAssessment = saved.RRAContextAssessment
	}
	if saved.RRAKeyUncertainties != nil {
		out.RRAKeyUncertainties = saved.RRAKeyUncertainties
	}
	if saved.RRARecommendations != nil {
		out.RRARecommendations = saved.RRARecommendations
	}
	if saved.Status != "" {
		status := saved.Status
		out.Status = &status
	}
	return out
}
