package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// SuggestionsClient groups the proactive suggestion APIs.
type SuggestionsClient struct {
	client *Client
}

// ScanResult is the outcome of one on-demand trigger scan.
type ScanResult struct {
	EntityName  string                     `json:"entity_name"`
	ScannedAt   time.Time                  `json:"scanned_at"`
	RecordsSeen int                        `json:"records_seen"`
	Suggestions []compliance.SuggestionDTO `json:"suggestions"`
}

// RaisedSuggestion is one persisted suggestion with its storage identity.
type RaisedSuggestion struct {
	ID         string                   `json:"id"`
	EntityName string                   `json:"entity_name"`
	RaisedAt   time.Time                `json:"raised_at"`
	Suggestion compliance.SuggestionDTO `json:"suggestion"`
}

// SuggestionList is a listing of recently raised suggestions.
type SuggestionList struct {
	EntityName  string             `json:"entity_name"`
	Suggestions []RaisedSuggestion `json:"suggestions"`
	Count       int                `json:"count"`
}

// Scan runs the trigger detectors over one entity's decision history.
// POST /api/v1/suggestions/scan
func (sc *SuggestionsClient) Scan(ctx context.Context, entityName string, category *compliance.TaskCategory) (*ScanResult, error) {
	if entityName == "" {
		return nil, invalidArg("entityName is required")
	}

	req := compliance.SuggestionScanRequest{EntityName: entityName, Category: category}

	var result ScanResult
	if err := sc.client.post(ctx, "/api/v1/suggestions/scan", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Recent lists the latest persisted suggestions for one entity, newest
// first. A non-positive limit uses the server default.
// GET /api/v1/suggestions?entity=...&limit=...
func (sc *SuggestionsClient) Recent(ctx context.Context, entityName string, limit int) (*SuggestionList, error) {
	if entityName == "" {
		return nil, invalidArg("entityName is required")
	}

	params := url.Values{}
	params.Set("entity", entityName)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var list SuggestionList
	if err := sc.client.get(ctx, "/api/v1/suggestions?"+params.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}
