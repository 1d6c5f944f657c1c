package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/application/simulation"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

type mockSimulationService struct {
	mock.Mock
}

func (m *mockSimulationService) Evaluate(ctx context.Context, baselineID common.ID, req compliance.WhatIfRequest) (*compliance.WhatIfResultDTO, error) {
	args := m.Called(ctx, baselineID, req)
	if result := args.Get(0); result != nil {
		return result.(*compliance.WhatIfResultDTO), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSimulationService) Compare(ctx context.Context, baselineID common.ID, req compliance.WhatIfCompareRequest) (*compliance.WhatIfComparisonDTO, error) {
	args := m.Called(ctx, baselineID, req)
	if result := args.Get(0); result != nil {
		return result.(*compliance.WhatIfComparisonDTO), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ simulation.Service = (*mockSimulationService)(nil)

func sampleWhatIfResult() *compliance.WhatIfResultDTO {
	return &compliance.WhatIfResultDTO{
		BaselineScore:    0.58,
		NewScore:         0.71,
		ScoreDelta:       0.13,
		BaselineLevel:    common.RiskMedium,
		NewLevel:         common.RiskHigh,
		BaselineDecision: common.DecisionReviewRequired,
		NewDecision:      common.DecisionEscalate,
		Explanation:      []string{"Jurisdiction risk raised from 0.50 to 0.90."},
		DecisionChange: compliance.DecisionChangeDTO{
			Changed:      true,
			LevelChanged: true,
			Impact:       "stricter",
		},
	}
}

// newSimulationRouter mounts the handler under the same nested route the real
// router uses so analysisID resolves.
func newSimulationRouter(h *SimulationHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/assessments/{analysisID}", func(ar chi.Router) {
		ar.Post("/whatif", h.Evaluate)
		ar.Post("/whatif/compare", h.Compare)
	})
	return r
}

func TestSimulationHandler_Evaluate_ReturnsProjection(t *testing.T) {
	svc := &mockSimulationService{}
	svc.On("Evaluate", mock.Anything, common.ID("an-7"), mock.Anything).
		Return(sampleWhatIfResult(), nil)

	h := NewSimulationHandler(svc, logging.NewNopLogger())

	body := `{"change": {"jurisdiction_risk": 0.9}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/an-7/whatif", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newSimulationRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got compliance.WhatIfResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.13, got.ScoreDelta, 1e-9)
	assert.Equal(t, common.DecisionEscalate, got.NewDecision)
	assert.True(t, got.DecisionChange.Changed)

	// The path parameter and the decoded patch both reach the service.
	decoded := svc.Calls[0].Arguments.Get(2).(compliance.WhatIfRequest)
	require.NotNil(t, decoded.Change.JurisdictionRisk)
	assert.InDelta(t, 0.9, *decoded.Change.JurisdictionRisk, 1e-9)
	svc.AssertExpectations(t)
}

func TestSimulationHandler_Evaluate_MalformedBodyReturns400(t *testing.T) {
	svc := &mockSimulationService{}
	h := NewSimulationHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/an-7/whatif", strings.NewReader(`{"change": `))
	rec := httptest.NewRecorder()
	newSimulationRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "COMMON_002", body.Code)
	svc.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSimulationHandler_Evaluate_BaselineNotFoundReturns404(t *testing.T) {
	svc := &mockSimulationService{}
	svc.On("Evaluate", mock.Anything, common.ID("an-gone"), mock.Anything).
		Return(nil, appErrors.New(appErrors.ErrCodeScenarioBaselineMissing, "baseline analysis not found"))

	h := NewSimulationHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/an-gone/whatif",
		strings.NewReader(`{"change": {"entity_risk": 0.2}}`))
	rec := httptest.NewRecorder()
	newSimulationRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "SIM_003", body.Code)
}

func TestSimulationHandler_Compare_ReturnsRankedScenarios(t *testing.T) {
	svc := &mockSimulationService{}
	comparison := &compliance.WhatIfComparisonDTO{
		BaselineScore:    0.58,
		BaselineLevel:    common.RiskMedium,
		BaselineDecision: common.DecisionReviewRequired,
		Scenarios: []compliance.ScenarioOutcomeDTO{
			{Name: "expand-to-eu", Result: *sampleWhatIfResult()},
			{Name: "drop-personal-data", Result: compliance.WhatIfResultDTO{BaselineScore: 0.58, NewScore: 0.41}},
		},
	}
	svc.On("Compare", mock.Anything, common.ID("an-7"), mock.Anything).Return(comparison, nil)

	h := NewSimulationHandler(svc, logging.NewNopLogger())

	body := `{"scenarios": [
		{"name": "expand-to-eu", "change": {"jurisdiction_risk": 0.9}},
		{"name": "drop-personal-data", "change": {"data_sensitivity_risk": 0.1}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/an-7/whatif/compare", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newSimulationRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got compliance.WhatIfComparisonDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Scenarios, 2)
	assert.Equal(t, "expand-to-eu", got.Scenarios[0].Name)

	decoded := svc.Calls[0].Arguments.Get(2).(compliance.WhatIfCompareRequest)
	require.Len(t, decoded.Scenarios, 2)
	assert.Equal(t, "drop-personal-data", decoded.Scenarios[1].Name)
	svc.AssertExpectations(t)
}

func TestSimulationHandler_Compare_MalformedBodyReturns400(t *testing.T) {
	svc := &mockSimulationService{}
	h := NewSimulationHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/an-7/whatif/compare",
		strings.NewReader(`{"scenarios": [`))
	rec := httptest.NewRecorder()
	newSimulationRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "COMMON_002", body.Code)
	svc.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
}
