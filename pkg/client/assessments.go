package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// AssessmentsClient groups the risk assessment APIs.
type AssessmentsClient struct {
	client *Client
}

// AssessmentPage is one page of recorded analyses.
type AssessmentPage struct {
	Assessments []compliance.AssessmentDTO `json:"assessments"`
	Total       int64                      `json:"total"`
	Page        int                        `json:"page"`
	PageSize    int                        `json:"page_size"`
	TotalPages  int                        `json:"total_pages"`
}

// ListOptions narrows and pages an assessment listing.
type ListOptions struct {
	EntityName string
	Page       int
	PageSize   int
}

// Create runs a compliance risk assessment and returns the recorded
// analysis.
// POST /api/v1/assessments
func (ac *AssessmentsClient) Create(ctx context.Context, req compliance.AssessmentRequest) (*compliance.AssessmentDTO, error) {
	if req.Entity.Name == "" {
		return nil, invalidArg("entity name is required")
	}
	if req.Task.Description == "" {
		return nil, invalidArg("task description is required")
	}

	var dto compliance.AssessmentDTO
	if err := ac.client.post(ctx, "/api/v1/assessments", req, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Get fetches one recorded analysis by ID.
// GET /api/v1/assessments/{analysisID}
func (ac *AssessmentsClient) Get(ctx context.Context, analysisID string) (*compliance.AssessmentDTO, error) {
	if analysisID == "" {
		return nil, invalidArg("analysisID is required")
	}

	var dto compliance.AssessmentDTO
	if err := ac.client.get(ctx, "/api/v1/assessments/"+url.PathEscape(analysisID), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// List pages through recorded analyses, newest first.
// GET /api/v1/assessments?entity=...&page=...&page_size=...
func (ac *AssessmentsClient) List(ctx context.Context, opts ListOptions) (*AssessmentPage, error) {
	params := url.Values{}
	if opts.EntityName != "" {
		params.Set("entity", opts.EntityName)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	path := "/api/v1/assessments"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page AssessmentPage
	if err := ac.client.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
