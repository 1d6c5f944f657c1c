package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

func TestSuggestionsClient_Scan(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/suggestions/scan", r.URL.Path)

		var req compliance.SuggestionScanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Meridian Capital", req.EntityName)
		assert.Nil(t, req.Category)

		json.NewEncoder(w).Encode(ScanResult{
			EntityName:  "Meridian Capital",
			ScannedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			RecordsSeen: 14,
			Suggestions: []compliance.SuggestionDTO{
				{TriggerName: "repeated_escalations", Priority: "HIGH"},
			},
		})
	}
	c := newTestClient(t, handler)

	result, err := c.Suggestions().Scan(context.Background(), "Meridian Capital", nil)
	require.NoError(t, err)
	assert.Equal(t, 14, result.RecordsSeen)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "repeated_escalations", result.Suggestions[0].TriggerName)
}

func TestSuggestionsClient_Scan_SendsCategory(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req compliance.SuggestionScanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Category)
		assert.Equal(t, compliance.CategoryDataPrivacy, *req.Category)
		json.NewEncoder(w).Encode(ScanResult{EntityName: req.EntityName})
	}
	c := newTestClient(t, handler)

	category := compliance.CategoryDataPrivacy
	_, err := c.Suggestions().Scan(context.Background(), "Meridian Capital", &category)
	assert.NoError(t, err)
}

func TestSuggestionsClient_Scan_RequiresEntityName(t *testing.T) {
	c, err := NewClient("http://api.example.com")
	require.NoError(t, err)

	_, err = c.Suggestions().Scan(context.Background(), "", nil)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestSuggestionsClient_Recent(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Meridian Capital", q.Get("entity"))
		assert.Equal(t, "5", q.Get("limit"))

		json.NewEncoder(w).Encode(SuggestionList{
			EntityName: "Meridian Capital",
			Suggestions: []RaisedSuggestion{
				{ID: "sg-2", EntityName: "Meridian Capital"},
				{ID: "sg-1", EntityName: "Meridian Capital"},
			},
			Count: 2,
		})
	}
	c := newTestClient(t, handler)

	list, err := c.Suggestions().Recent(context.Background(), "Meridian Capital", 5)
	require.NoError(t, err)
	require.Len(t, list.Suggestions, 2)
	assert.Equal(t, "sg-2", list.Suggestions[0].ID)
}

func TestSuggestionsClient_Recent_OmitsNonPositiveLimit(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("limit"))
		json.NewEncoder(w).Encode(SuggestionList{})
	}
	c := newTestClient(t, handler)

	_, err := c.Suggestions().Recent(context.Background(), "Meridian Capital", 0)
	assert.NoError(t, err)
}
