package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// DecisionsClient groups the decision-history search APIs.
type DecisionsClient struct {
	client *Client
}

// DecisionSearchRequest describes one decision-history search. Zero-valued
// fields are omitted, so the empty request pages through the whole index
// newest first.
type DecisionSearchRequest struct {
	Query          string
	EntityName     string
	Category       string
	Decision       string
	RiskLevel      string
	Jurisdiction   string
	MinRiskScore   *float64
	MaxRiskScore   *float64
	AnalyzedAfter  *time.Time
	AnalyzedBefore *time.Time
	Page           int
	PageSize       int
	SortBy         string
	SortAsc        bool
	WithFacets     bool
	WithHighlights bool
}

// DecisionRecord is one indexed decision document.
type DecisionRecord struct {
	AnalysisID         string     `json:"analysis_id"`
	EntityName         string     `json:"entity_name"`
	Category           string     `json:"category"`
	TaskDescription    string     `json:"task_description,omitempty"`
	Decision           string     `json:"decision"`
	RiskLevel          string     `json:"risk_level"`
	RiskScore          float64    `json:"risk_score"`
	Confidence         float64    `json:"confidence"`
	Jurisdictions      []string   `json:"jurisdictions,omitempty"`
	RegulatoryDeadline *time.Time `json:"regulatory_deadline,omitempty"`
	AnalyzedAt         time.Time  `json:"analyzed_at"`
}

// DecisionHit is one matching document with its relevance score.
type DecisionHit struct {
	DecisionRecord
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// FacetBucket is one value count within a facet.
type FacetBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DecisionPage is one page of search results.
type DecisionPage struct {
	Total  int64                    `json:"total"`
	Took   time.Duration            `json:"took"`
	Hits   []DecisionHit            `json:"hits"`
	Facets map[string][]FacetBucket `json:"facets,omitempty"`
}

// Search queries the decision index.
// GET /api/v1/decisions/search
func (dc *DecisionsClient) Search(ctx context.Context, req DecisionSearchRequest) (*DecisionPage, error) {
	params := url.Values{}
	setIfPresent := func(key, value string) {
		if value != "" {
			params.Set(key, value)
		}
	}
	setIfPresent("q", req.Query)
	setIfPresent("entity", req.EntityName)
	setIfPresent("category", req.Category)
	setIfPresent("decision", req.Decision)
	setIfPresent("risk_level", req.RiskLevel)
	setIfPresent("jurisdiction", req.Jurisdiction)
	setIfPresent("sort", req.SortBy)

	if req.MinRiskScore != nil {
		params.Set("min_score", strconv.FormatFloat(*req.MinRiskScore, 'f', -1, 64))
	}
	if req.MaxRiskScore != nil {
		params.Set("max_score", strconv.FormatFloat(*req.MaxRiskScore, 'f', -1, 64))
	}
	if req.AnalyzedAfter != nil {
		params.Set("analyzed_after", req.AnalyzedAfter.Format(time.RFC3339))
	}
	if req.AnalyzedBefore != nil {
		params.Set("analyzed_before", req.AnalyzedBefore.Format(time.RFC3339))
	}
	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.SortAsc {
		params.Set("order", "asc")
	}
	if req.WithFacets {
		params.Set("facets", "true")
	}
	if req.WithHighlights {
		params.Set("highlights", "true")
	}

	path := "/api/v1/decisions/search"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page DecisionPage
	if err := dc.client.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
