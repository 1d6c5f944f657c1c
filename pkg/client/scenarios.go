package client

import (
	"context"
	"net/url"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ScenariosClient groups the what-if projection APIs. Every call evaluates
// hypothetical changes against one recorded baseline analysis; the baseline
// itself is never modified.
type ScenariosClient struct {
	client *Client
}

// Evaluate projects a single change against a recorded baseline.
// POST /api/v1/assessments/{analysisID}/whatif
func (sc *ScenariosClient) Evaluate(ctx context.Context, baselineID string, change compliance.ScenarioChange) (*compliance.WhatIfResultDTO, error) {
	if baselineID == "" {
		return nil, invalidArg("baselineID is required")
	}

	req := compliance.WhatIfRequest{Change: change}
	path := "/api/v1/assessments/" + url.PathEscape(baselineID) + "/whatif"

	var result compliance.WhatIfResultDTO
	if err := sc.client.post(ctx, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Compare evaluates several named scenarios against the same baseline and
// returns the outcomes ranked by resulting score.
// POST /api/v1/assessments/{analysisID}/whatif/compare
func (sc *ScenariosClient) Compare(ctx context.Context, baselineID string, scenarios []compliance.NamedScenario) (*compliance.WhatIfComparisonDTO, error) {
	if baselineID == "" {
		return nil, invalidArg("baselineID is required")
	}
	if len(scenarios) == 0 {
		return nil, invalidArg("at least one scenario is required")
	}

	req := compliance.WhatIfCompareRequest{Scenarios: scenarios}
	path := "/api/v1/assessments/" + url.PathEscape(baselineID) + "/whatif/compare"

	var comparison compliance.WhatIfComparisonDTO
	if err := sc.client.post(ctx, path, req, &comparison); err != nil {
		return nil, err
	}
	return &comparison, nil
}
