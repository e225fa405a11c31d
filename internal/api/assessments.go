package api

import (
	"context"
	"net/http"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/validate"
)

// CreateAssessment opens an assessment of the given type on a signal
func (c *Client) CreateAssessment(ctx context.Context, signalID string, kind model.AssessmentType) (*model.Assessment, error) {
	if err := validate.ID("signal_id", signalID); err != nil {
		return nil, err
	}
	if err := validate.AssessmentType(kind); err != nil {
		return nil, err
	}
	var out model.Assessment
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("assessments"),
		body:   model.AssessmentCreate{SignalID: signalID, AssessmentType: kind},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAssessment fetches one assessment
func (c *Client) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	if err := validate.ID("assessment_id", id); err != nil {
		return nil, err
	}
	var out model.Assessment
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("assessments", id),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssessment saves a partial update and returns the server's copy
func (c *Client) UpdateAssessment(ctx context.Context, id string, update model.AssessmentUpdate) (*model.Assessment, error) {
	if err := validate.ID("assessment_id", id); err != nil {
		return nil, err
	}
	if err := validate.AssessmentUpdate(update); err != nil {
		return nil, err
	}
	var out model.Assessment
	if err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.endpoint("assessments", id),
		body:   update,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteAssessment finalizes an assessment. The justification is
// required before anything is sent.
func (c *Client) CompleteAssessment(ctx context.Context, id string, req model.CompleteRequest) (*model.Assessment, error) {
	if err := validate.ID("assessment_id", id); err != nil {
		return nil, err
	}
	if err := validate.Completion(req); err != nil {
		return nil, err
	}
	var out model.Assessment
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("assessments", id, "complete"),
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
