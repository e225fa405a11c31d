package api

import (
	"context"
	"net/http"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/validate"
)

// PendingEscalations lists escalations awaiting a director decision
func (c *Client) PendingEscalations(ctx context.Context) ([]model.Escalation, error) {
	var out []model.Escalation
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("escalations", "pending"),
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Escalation{}
	}
	return out, nil
}

// EscalationDetail returns the escalation joined with its signal and assessment
func (c *Client) EscalationDetail(ctx context.Context, id string) (*model.EscalationDetail, error) {
	if err := validate.ID("escalation_id", id); err != nil {
		return nil, err
	}
	var out model.EscalationDetail
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("escalations", id),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitDecision records the director's decision. Invalid decisions are
// rejected before any request is issued.
func (c *Client) SubmitDecision(ctx context.Context, id string, decision model.DirectorDecision) (*model.Escalation, error) {
	if err := validate.ID("escalation_id", id); err != nil {
		return nil, err
	}
	if err := validate.Decision(decision); err != nil {
		return nil, err
	}
	if decision.ActionsTaken == nil {
		decision.ActionsTaken = []string{}
	}
	var out model.Escalation
	if err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.endpoint("escalations", id, "decision"),
		body:   decision,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
