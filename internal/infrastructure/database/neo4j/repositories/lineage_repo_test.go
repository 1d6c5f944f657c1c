package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

func newTestLineageRepo(t *testing.T) (*LineageRepository, *mockExecutor) {
	t.Helper()
	exec := newMockExecutor()
	return NewLineageRepository(exec, logging.NewNopLogger()), exec
}

func sampleLineage() DecisionLineage {
	return DecisionLineage{
		AnalysisID:    "a-1",
		EntityName:    "Meridian Capital",
		Category:      "DATA_PRIVACY",
		Decision:      "ESCALATE",
		RiskLevel:     "HIGH",
		RiskScore:     0.72,
		AnalyzedAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Regulations:   []string{"GDPR", "SOX"},
		Jurisdictions: []string{"EU", "US"},
	}
}

func TestLineageRepository_EnsureSchema_CreatesAllConstraints(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	require.NoError(t, repo.EnsureSchema(context.Background()))

	exec.tx.AssertNumberOfCalls(t, "Run", len(lineageConstraints))
	for i, stmt := range lineageConstraints {
		assert.Equal(t, stmt, exec.tx.Calls[i].Arguments.String(1))
	}
}

func TestLineageRepository_EnsureSchema_StopsOnFirstError(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("no admin rights"))

	err := repo.EnsureSchema(context.Background())

	require.Error(t, err)
	exec.tx.AssertNumberOfCalls(t, "Run", 1)
}

func TestLineageRepository_RecordDecision_UpsertsEntityDecisionAndLinks(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	require.NoError(t, repo.RecordDecision(context.Background(), sampleLineage()))

	exec.tx.AssertNumberOfCalls(t, "Run", 3)

	upsert := exec.tx.Calls[0].Arguments
	assert.Contains(t, upsert.String(1), "MERGE (e:Entity {name: $entityName})")
	assert.Contains(t, upsert.String(1), "MERGE (d:Decision {analysis_id: $analysisId})")
	assert.Contains(t, upsert.String(1), "MERGE (e)-[:DECIDED]->(d)")
	params := upsert.Get(2).(map[string]any)
	assert.Equal(t, "Meridian Capital", params["entityName"])
	assert.Equal(t, "a-1", params["analysisId"])
	assert.Equal(t, 0.72, params["riskScore"])
	assert.Equal(t, "2025-06-01T10:00:00Z", params["analyzedAt"])

	cites := exec.tx.Calls[1].Arguments
	assert.Contains(t, cites.String(1), "UNWIND $regulations")
	assert.Contains(t, cites.String(1), "MERGE (d)-[:CITES]->(r)")
	assert.Equal(t, []any{"GDPR", "SOX"}, cites.Get(2).(map[string]any)["regulations"])

	links := exec.tx.Calls[2].Arguments
	assert.Contains(t, links.String(1), "UNWIND $jurisdictions")
	assert.Contains(t, links.String(1), "MERGE (d)-[:IN_JURISDICTION]->(j)")
	assert.Equal(t, []any{"EU", "US"}, links.Get(2).(map[string]any)["jurisdictions"])
}

func TestLineageRepository_RecordDecision_SkipsEmptyLinkLists(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	lineage := sampleLineage()
	lineage.Regulations = nil
	lineage.Jurisdictions = nil

	require.NoError(t, repo.RecordDecision(context.Background(), lineage))
	exec.tx.AssertNumberOfCalls(t, "Run", 1)
}

func TestLineageRepository_RecordDecision_RequiresIDs(t *testing.T) {
	repo, exec := newTestLineageRepo(t)

	missing := sampleLineage()
	missing.AnalysisID = ""
	err := repo.RecordDecision(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	missing = sampleLineage()
	missing.EntityName = ""
	err = repo.RecordDecision(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	exec.tx.AssertNumberOfCalls(t, "Run", 0)
}

func TestLineageRepository_EntityRegulations_MapsRecords(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	result := &mockResult{records: []*neo4j.Record{
		newRecord(
			[]string{"regulation", "citations", "last_cited"},
			[]any{"GDPR", int64(4), "2025-05-01T12:00:00Z"},
		),
		newRecord(
			[]string{"regulation", "citations", "last_cited"},
			[]any{"SOX", int64(2), "2025-04-20T08:30:00Z"},
		),
	}}
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	got, err := repo.EntityRegulations(context.Background(), "Meridian Capital", 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GDPR", got[0].Regulation)
	assert.Equal(t, int64(4), got[0].Citations)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), got[0].LastCited)
	assert.Equal(t, "SOX", got[1].Regulation)

	params := exec.tx.Calls[0].Arguments.Get(2).(map[string]any)
	assert.Equal(t, "Meridian Capital", params["entityName"])
	assert.Equal(t, int64(10), params["limit"])
}

func TestLineageRepository_EntityRegulations_LimitDefaultsAndCaps(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	_, err := repo.EntityRegulations(context.Background(), "Meridian Capital", 0)
	require.NoError(t, err)
	_, err = repo.EntityRegulations(context.Background(), "Meridian Capital", 5000)
	require.NoError(t, err)

	first := exec.tx.Calls[0].Arguments.Get(2).(map[string]any)
	second := exec.tx.Calls[1].Arguments.Get(2).(map[string]any)
	assert.Equal(t, int64(defaultQueryLimit), first["limit"])
	assert.Equal(t, int64(maxQueryLimit), second["limit"])
}

func TestLineageRepository_EntityRegulations_RequiresEntityName(t *testing.T) {
	repo, _ := newTestLineageRepo(t)

	_, err := repo.EntityRegulations(context.Background(), "", 10)

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLineageRepository_RegulationImpact_MapsRecords(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	result := &mockResult{records: []*neo4j.Record{
		newRecord(
			[]string{"entity_name", "citations", "max_risk_score", "last_analyzed"},
			[]any{"Meridian Capital", int64(3), 0.82, "2025-06-01T10:00:00Z"},
		),
	}}
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	got, err := repo.RegulationImpact(context.Background(), "GDPR", 25)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Meridian Capital", got[0].EntityName)
	assert.Equal(t, int64(3), got[0].Citations)
	assert.InDelta(t, 0.82, got[0].MaxRiskScore, 1e-9)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), got[0].LastAnalyzed)

	params := exec.tx.Calls[0].Arguments.Get(2).(map[string]any)
	assert.Equal(t, "GDPR", params["regulation"])
}

func TestLineageRepository_RelatedEntities_MapsRecords(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	result := &mockResult{records: []*neo4j.Record{
		newRecord(
			[]string{"entity_name", "shared_regulations"},
			[]any{"Northwind Logistics", int64(3)},
		),
		newRecord(
			[]string{"entity_name", "shared_regulations"},
			[]any{"Atlas Biotech", int64(1)},
		),
	}}
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	got, err := repo.RelatedEntities(context.Background(), "Meridian Capital", 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Northwind Logistics", got[0].EntityName)
	assert.Equal(t, int64(3), got[0].SharedRegulations)

	cypher := exec.tx.Calls[0].Arguments.String(1)
	assert.Contains(t, cypher, "WHERE other.name <> $entityName",
		"the entity must not be related to itself")
}

func TestLineageRepository_DecisionTrail_ReturnsStoredLineage(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	result := &mockResult{records: []*neo4j.Record{
		newRecord(
			[]string{
				"entity_name", "category", "decision", "risk_level",
				"risk_score", "analyzed_at", "regulations", "jurisdictions",
			},
			[]any{
				"Meridian Capital", "DATA_PRIVACY", "ESCALATE", "HIGH",
				0.72, "2025-06-01T10:00:00Z", []any{"GDPR", nil, "SOX"}, []any{"EU"},
			},
		),
	}}
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	trail, err := repo.DecisionTrail(context.Background(), "a-1")

	require.NoError(t, err)
	assert.Equal(t, "a-1", trail.AnalysisID)
	assert.Equal(t, "Meridian Capital", trail.EntityName)
	assert.Equal(t, "DATA_PRIVACY", trail.Category)
	assert.Equal(t, "ESCALATE", trail.Decision)
	assert.Equal(t, "HIGH", trail.RiskLevel)
	assert.InDelta(t, 0.72, trail.RiskScore, 1e-9)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), trail.AnalyzedAt)
	assert.Equal(t, []string{"GDPR", "SOX"}, trail.Regulations,
		"null collect entries must be dropped")
	assert.Equal(t, []string{"EU"}, trail.Jurisdictions)
}

func TestLineageRepository_DecisionTrail_NotFound(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	trail, err := repo.DecisionTrail(context.Background(), "missing")

	require.Error(t, err)
	assert.Nil(t, trail)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestLineageRepository_DecisionTrail_ExecutorError(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.failWith = fmt.Errorf("session expired")

	_, err := repo.DecisionTrail(context.Background(), "a-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
}

func TestLineageRepository_DeleteDecision_DetachDeletes(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&mockResult{}, nil)

	require.NoError(t, repo.DeleteDecision(context.Background(), "a-1"))

	args := exec.tx.Calls[0].Arguments
	assert.Contains(t, args.String(1), "DETACH DELETE d")
	assert.Equal(t, "a-1", args.Get(2).(map[string]any)["analysisId"])
}

func TestLineageRepository_DeleteOlderThan_ReportsDeleted(t *testing.T) {
	repo, exec := newTestLineageRepo(t)
	result := &mockResult{summary: &mockSummary{counters: &mockCounters{nodesDeleted: 12}}}
	exec.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	deleted, err := repo.DeleteOlderThan(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)

	args := exec.tx.Calls[0].Arguments
	assert.Contains(t, args.String(1), "d.analyzed_at < $cutoff")
	assert.Equal(t, "2025-01-01T00:00:00Z", args.Get(2).(map[string]any)["cutoff"])
}
