package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}

func TestWriteAppError_MapsCodeToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "analysis not found",
			err:        appErrors.New(appErrors.ErrCodeAnalysisNotFound, "analysis not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "DEC_006",
		},
		{
			name:       "validation",
			err:        appErrors.Validation("entity name is required"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "COMMON_010",
		},
		{
			name:       "history unavailable",
			err:        appErrors.New(appErrors.ErrCodeHistoryUnavailable, "decision history unavailable"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "SUG_003",
		},
		{
			name:       "infrastructure failure",
			err:        appErrors.New(appErrors.ErrCodeSearchIndexError, "search request failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INF_004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeErrorBody(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestWriteAppError_WrappedErrorUsesOutermostCode(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := appErrors.Wrap(inner, appErrors.ErrCodeDatabaseError, "failed to load decision record")

	rec := httptest.NewRecorder()
	writeAppError(rec, wrapped)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "INF_001", body.Code)
	// The caller-facing message stays clean of the raw cause.
	assert.Equal(t, "failed to load decision record", body.Message)
}

func TestWriteAppError_UnknownErrorBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, errors.New("something unexpected"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "COMMON_001", body.Code)
	assert.Equal(t, "internal server error", body.Message)
}

func TestParsePagination_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)

	p := parsePagination(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestParsePagination_ReadsQueryParameters(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/assessments?page=3&page_size=50", nil)

	p := parsePagination(r)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
}

func TestParsePagination_IgnoresMalformedValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/assessments?page=abc&page_size=-5", nil)

	p := parsePagination(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestParseLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?limit=7", nil)
	assert.Equal(t, 7, parseLimit(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/suggestions", nil)
	assert.Equal(t, 20, parseLimit(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?limit=zero", nil)
	assert.Equal(t, 20, parseLimit(r, 20))
}
