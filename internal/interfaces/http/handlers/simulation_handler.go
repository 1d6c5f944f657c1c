package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/CompliSense/internal/application/simulation"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// SimulationHandler serves what-if projections over recorded analyses.
type SimulationHandler struct {
	svc    simulation.Service
	logger logging.Logger
}

// NewSimulationHandler creates a simulation handler.
func NewSimulationHandler(svc simulation.Service, logger logging.Logger) *SimulationHandler {
	return &SimulationHandler{svc: svc, logger: logger}
}

// Evaluate projects one hypothetical change against a recorded baseline
// analysis. The baseline itself is never modified.
// POST /api/v1/assessments/{analysisID}/whatif
func (h *SimulationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	var req compliance.WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("malformed what-if request", logging.Err(err))
		writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Evaluate(r.Context(), common.ID(id), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Compare evaluates several named scenarios against the same baseline and
// returns the ranked outcomes.
// POST /api/v1/assessments/{analysisID}/whatif/compare
func (h *SimulationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	var req compliance.WhatIfCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("malformed scenario comparison request", logging.Err(err))
		writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "invalid request body")
		return
	}

	comparison, err := h.svc.Compare(r.Context(), common.ID(id), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comparison)
}
