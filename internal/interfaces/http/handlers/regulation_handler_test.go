package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

func TestRegulationHandler_Catalog_ListsKnownRegulations(t *testing.T) {
	h := NewRegulationHandler(risk.NewJurisdictionAnalyzer())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	rec := httptest.NewRecorder()
	h.Catalog(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got RegulationCatalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, len(got.Regulations), got.Count)
	assert.Greater(t, got.Count, 10)

	byName := make(map[string]compliance.RegulationDTO, len(got.Regulations))
	for _, reg := range got.Regulations {
		byName[reg.Name] = reg
	}
	gdpr, ok := byName["GDPR"]
	require.True(t, ok, "catalog should include GDPR")
	assert.Equal(t, compliance.JurisdictionEU, gdpr.Jurisdiction)
	assert.Empty(t, gdpr.Condition)

	hipaa, ok := byName["HIPAA"]
	require.True(t, ok, "catalog should include HIPAA")
	assert.NotEmpty(t, hipaa.Condition)
}
