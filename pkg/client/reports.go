package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ReportsClient groups the compliance report APIs.
type ReportsClient struct {
	client *Client
}

// GenerateReportRequest bounds the decision window a report covers. Nil
// From/To leave the window open on that side.
type GenerateReportRequest struct {
	EntityName string     `json:"entity_name"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// ReportCase is one high-risk decision cited in a report.
type ReportCase struct {
	AnalysisID      string    `json:"analysis_id"`
	TaskDescription string    `json:"task_description,omitempty"`
	Decision        string    `json:"decision"`
	RiskLevel       string    `json:"risk_level"`
	RiskScore       float64   `json:"risk_score"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// RegulationActivity is one regulation's citation footprint.
type RegulationActivity struct {
	Regulation string    `json:"regulation"`
	Citations  int64     `json:"citations"`
	LastCited  time.Time `json:"last_cited"`
}

// EntityReport is the report document as archived.
type EntityReport struct {
	EntityName       string               `json:"entity_name"`
	GeneratedAt      time.Time            `json:"generated_at"`
	PeriodStart      *time.Time           `json:"period_start,omitempty"`
	PeriodEnd        *time.Time           `json:"period_end,omitempty"`
	TotalDecisions   int                  `json:"total_decisions"`
	AverageRiskScore float64              `json:"average_risk_score"`
	MaxRiskScore     float64              `json:"max_risk_score"`
	ByDecision       map[string]int       `json:"by_decision"`
	ByRiskLevel      map[string]int       `json:"by_risk_level"`
	ByCategory       map[string]int       `json:"by_category"`
	HighRiskCases    []ReportCase         `json:"high_risk_cases,omitempty"`
	Regulations      []RegulationActivity `json:"regulations,omitempty"`
}

// GeneratedReport is the response of a report generation call.
type GeneratedReport struct {
	Report      *EntityReport `json:"report"`
	Key         string        `json:"key"`
	Size        int64         `json:"size"`
	DownloadURL string        `json:"download_url,omitempty"`
}

// ArchivedReport describes one archived report document.
type ArchivedReport struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// ReportList is a listing of archived reports for one entity.
type ReportList struct {
	EntityName string           `json:"entity_name"`
	Reports    []ArchivedReport `json:"reports"`
	Count      int              `json:"count"`
}

// ReportDownload is a fetched report document.
type ReportDownload struct {
	Data        []byte
	ContentType string
}

// Generate aggregates one entity's decision history into a report and
// archives it.
// POST /api/v1/reports
func (rc *ReportsClient) Generate(ctx context.Context, req GenerateReportRequest) (*GeneratedReport, error) {
	if req.EntityName == "" {
		return nil, invalidArg("entityName is required")
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return nil, invalidArg("from must not be after to")
	}

	var out GeneratedReport
	if err := rc.client.post(ctx, "/api/v1/reports", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the archived reports of one entity.
// GET /api/v1/reports?entity=...&limit=...
func (rc *ReportsClient) List(ctx context.Context, entityName string, limit int) (*ReportList, error) {
	if entityName == "" {
		return nil, invalidArg("entityName is required")
	}

	params := url.Values{}
	params.Set("entity", entityName)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var list ReportList
	if err := rc.client.get(ctx, "/api/v1/reports?"+params.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Download fetches one archived report document verbatim.
// GET /api/v1/reports/download?key=...
func (rc *ReportsClient) Download(ctx context.Context, key string) (*ReportDownload, error) {
	if key == "" {
		return nil, invalidArg("key is required")
	}

	params := url.Values{}
	params.Set("key", key)

	body, headers, err := rc.client.doRequest(ctx, http.MethodGet, "/api/v1/reports/download?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return &ReportDownload{
		Data:        body,
		ContentType: headers.Get("Content-Type"),
	}, nil
}
