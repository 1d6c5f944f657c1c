package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/CompliSense/internal/application/advisory"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// SuggestionHandler serves proactive compliance suggestions.
type SuggestionHandler struct {
	svc    advisory.Service
	logger logging.Logger
}

// NewSuggestionHandler creates a suggestion handler.
func NewSuggestionHandler(svc advisory.Service, logger logging.Logger) *SuggestionHandler {
	return &SuggestionHandler{svc: svc, logger: logger}
}

// SuggestionListResponse is the response body for Recent.
type SuggestionListResponse struct {
	EntityName  string                      `json:"entity_name"`
	Suggestions []advisory.RaisedSuggestion `json:"suggestions"`
	Count       int                         `json:"count"`
}

// Scan runs the trigger detectors over one entity's decision history and
// returns whatever they raise.
// POST /api/v1/suggestions/scan
func (h *SuggestionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req compliance.SuggestionScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("malformed suggestion scan request", logging.Err(err))
		writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Scan(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Recent lists the latest persisted suggestions for one entity, newest first.
// GET /api/v1/suggestions?entity=...&limit=...
func (h *SuggestionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	limit := parseLimit(r, 20)

	items, err := h.svc.Recent(r.Context(), entity, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestionListResponse{
		EntityName:  entity,
		Suggestions: items,
		Count:       len(items),
	})
}
