package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

func validAssessmentRequest() compliance.AssessmentRequest {
	return compliance.AssessmentRequest{
		Entity: compliance.EntityContext{
			Name:            "Meridian Capital",
			EntityType:      compliance.EntityFinancialInstitution,
			Industry:        compliance.IndustryFinancialServices,
			Jurisdictions:   []compliance.Jurisdiction{compliance.JurisdictionEU},
			HasPersonalData: true,
			IsRegulated:     true,
		},
		Task: compliance.TaskContext{
			Description:         "Transfer customer records to a new EU processor",
			Category:            compliance.CategoryDataPrivacy,
			AffectsPersonalData: true,
			PotentialImpact:     compliance.ImpactHigh,
		},
	}
}

func TestAssessmentsClient_Create(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/assessments", r.URL.Path)

		var req compliance.AssessmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Meridian Capital", req.Entity.Name)
		assert.Equal(t, compliance.CategoryDataPrivacy, req.Task.Category)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "an-100",
			"overall_score": 0.58,
			"risk_level":    "MEDIUM",
			"decision":      "REVIEW_REQUIRED",
			"confidence":    0.78,
		})
	}
	c := newTestClient(t, handler)

	dto, err := c.Assessments().Create(context.Background(), validAssessmentRequest())
	require.NoError(t, err)
	assert.Equal(t, "an-100", string(dto.ID))
	assert.InDelta(t, 0.58, dto.OverallScore, 1e-9)
}

func TestAssessmentsClient_Create_RequiresEntityName(t *testing.T) {
	c, err := NewClient("http://api.example.com")
	require.NoError(t, err)

	req := validAssessmentRequest()
	req.Entity.Name = ""
	_, err = c.Assessments().Create(context.Background(), req)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, err.Error(), "entity name")
}

func TestAssessmentsClient_Create_RequiresTaskDescription(t *testing.T) {
	c, err := NewClient("http://api.example.com")
	require.NoError(t, err)

	req := validAssessmentRequest()
	req.Task.Description = ""
	_, err = c.Assessments().Create(context.Background(), req)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
}

func TestAssessmentsClient_Create_ServerValidationError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"code": "COMMON_010", "message": "invalid entity_type"}}`))
	}
	c := newTestClient(t, handler)

	_, err := c.Assessments().Create(context.Background(), validAssessmentRequest())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, "COMMON_010", apiErr.Code)
}

func TestAssessmentsClient_Get(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/assessments/an-7", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "an-7", "risk_level": "HIGH"})
	}
	c := newTestClient(t, handler)

	dto, err := c.Assessments().Get(context.Background(), "an-7")
	require.NoError(t, err)
	assert.Equal(t, "an-7", string(dto.ID))
}

func TestAssessmentsClient_Get_RequiresID(t *testing.T) {
	c, err := NewClient("http://api.example.com")
	require.NoError(t, err)

	_, err = c.Assessments().Get(context.Background(), "")
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestAssessmentsClient_Get_NotFound(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "DEC_006", "message": "analysis not found"}}`))
	}
	c := newTestClient(t, handler)

	_, err := c.Assessments().Get(context.Background(), "an-missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestAssessmentsClient_List_EncodesQuery(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Meridian Capital", q.Get("entity"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("page_size"))
		json.NewEncoder(w).Encode(AssessmentPage{Total: 60, Page: 2, PageSize: 25, TotalPages: 3})
	}
	c := newTestClient(t, handler)

	page, err := c.Assessments().List(context.Background(), ListOptions{
		EntityName: "Meridian Capital",
		Page:       2,
		PageSize:   25,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestAssessmentsClient_List_ZeroOptionsSendNoQuery(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		json.NewEncoder(w).Encode(AssessmentPage{Total: 0})
	}
	c := newTestClient(t, handler)

	_, err := c.Assessments().List(context.Background(), ListOptions{})
	assert.NoError(t, err)
}
