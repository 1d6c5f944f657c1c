//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/application/advisory"
	"github.com/turtacn/CompliSense/internal/application/assessment"
	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/domain/suggestion"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

func TestAdvisoryPipeline_RaisesAndPersistsSuggestions(t *testing.T) {
	pool := startPostgres(t)
	decisions, suggestions := newRepositories(pool)
	log := logging.NewNopLogger()
	assessSvc := assessment.NewService(decision.NewDefaultEngine(), decisions, log)
	advisor := advisory.NewService(suggestion.NewDefaultService(), decisions, suggestions, log)
	ctx := context.Background()

	// A deadline three days out must trip the proximity detector.
	deadline := time.Now().UTC().Add(3 * 24 * time.Hour)
	_, err := assessSvc.Assess(ctx, highRiskRequest("Meridian Capital", deadline))
	require.NoError(t, err)

	result, err := advisor.Scan(ctx, compliance.SuggestionScanRequest{EntityName: "Meridian Capital"})
	require.NoError(t, err)

	assert.Equal(t, "Meridian Capital", result.EntityName)
	assert.Equal(t, 1, result.RecordsSeen)
	require.NotEmpty(t, result.Suggestions)

	var proximity *compliance.SuggestionDTO
	for i := range result.Suggestions {
		if result.Suggestions[i].TriggerName == "deadline_proximity" {
			proximity = &result.Suggestions[i]
			break
		}
	}
	require.NotNil(t, proximity, "expected a deadline proximity suggestion")
	assert.Equal(t, "review_deadline_calendar", proximity.ActionID)
	assert.NotEmpty(t, proximity.Title)
	assert.NotEmpty(t, proximity.Message)

	// Raised suggestions survive the scan that produced them.
	recent, err := advisor.Recent(ctx, "Meridian Capital", 10)
	require.NoError(t, err)
	require.Len(t, recent, len(result.Suggestions))
	for _, rec := range recent {
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "Meridian Capital", rec.EntityName)
		assert.False(t, rec.RaisedAt.IsZero())
		assert.NotEmpty(t, rec.Suggestion.TriggerName)
	}
}

func TestAdvisoryPipeline_QuietHistoryStaysSilent(t *testing.T) {
	pool := startPostgres(t)
	decisions, suggestions := newRepositories(pool)
	log := logging.NewNopLogger()
	assessSvc := assessment.NewService(decision.NewDefaultEngine(), decisions, log)
	advisor := advisory.NewService(suggestion.NewDefaultService(), decisions, suggestions, log)
	ctx := context.Background()

	_, err := assessSvc.Assess(ctx, lowRiskRequest("Quiet Trading"))
	require.NoError(t, err)

	result, err := advisor.Scan(ctx, compliance.SuggestionScanRequest{EntityName: "Quiet Trading"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RecordsSeen)
	assert.Empty(t, result.Suggestions)

	recent, err := advisor.Recent(ctx, "Quiet Trading", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
