package model

// Decision is the director's verdict on an escalation
type Decision string

const (
	DecisionApprove         Decision = "approve"
	DecisionReject          Decision = "reject"
	DecisionRequestMoreInfo Decision = "request_more_info"
)

// Director statuses
const (
	DirectorPending  = "Pending Review"
	DirectorApproved = "Approved"
	DirectorRejected = "Rejected"
)

// Escalation forwards an assessment outcome to the director
type Escalation struct {
	ID                 string     `json:"id"`
	SignalID           string     `json:"signal_id"`
	AssessmentID       string     `json:"assessment_id"`
	EscalationLevel    string     `json:"escalation_level"`
	Priority           string     `json:"priority"`
	EscalationReason   string     `json:"escalation_reason"`
	RecommendedActions []string   `json:"recommended_actions"`
	DirectorStatus     string     `json:"director_status"`
	DirectorDecision   *string    `json:"director_decision,omitempty"`
	DirectorNotes      *string    `json:"director_notes,omitempty"`
	ActionsTaken       []string   `json:"actions_taken,omitempty"`
	ReviewedBy         *string    `json:"reviewed_by,omitempty"`
	EscalatedAt        Timestamp  `json:"escalated_at"`
	EscalatedBy        string     `json:"escalated_by"`
	ReviewedAt         *Timestamp `json:"reviewed_at,omitempty"`
	ResolvedAt         *Timestamp `json:"resolved_at,omitempty"`
	CreatedAt          Timestamp  `json:"created_at"`
	UpdatedAt          Timestamp  `json:"updated_at"`
}

// EscalationDetail joins the escalation with its signal and assessment
type EscalationDetail struct {
	Escalation
	Signal     Signal     `json:"signal"`
	Assessment Assessment `json:"assessment"`
}

// DirectorDecision is the body of PATCH /escalations/{id}/decision
type DirectorDecision struct {
	Decision      Decision `json:"director_decision"`
	ActionsTaken  []string `json:"actions_taken"`
	DirectorNotes string   `json:"director_notes"`
}
