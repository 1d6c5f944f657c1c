package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/CompliSense/internal/application/assessment"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// AssessmentHandler serves the assessment resource: running new compliance
// analyses and reading back recorded ones.
type AssessmentHandler struct {
	svc    assessment.Service
	logger logging.Logger
}

// NewAssessmentHandler creates an assessment handler.
func NewAssessmentHandler(svc assessment.Service, logger logging.Logger) *AssessmentHandler {
	return &AssessmentHandler{svc: svc, logger: logger}
}

// Create runs a compliance assessment for one entity/task pair and returns
// the recorded analysis.
// POST /api/v1/assessments
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req compliance.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("malformed assessment request", logging.Err(err))
		writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "invalid request body")
		return
	}

	dto, err := h.svc.Assess(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto)
}

// Get returns one recorded analysis by ID.
// GET /api/v1/assessments/{analysisID}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	dto, err := h.svc.Get(r.Context(), common.ID(id))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// List pages through recorded analyses newest first, optionally scoped to one
// entity.
// GET /api/v1/assessments?entity=...&page=...&page_size=...
func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	req := compliance.AssessmentListRequest{
		EntityName: r.URL.Query().Get("entity"),
		Pagination: parsePagination(r),
	}

	page, err := h.svc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}
