package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/turtacn/CompliSense/internal/application/reporting"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

// ReportHandler serves compliance report generation and retrieval.
type ReportHandler struct {
	svc    reporting.Service
	logger logging.Logger
}

// NewReportHandler creates a report handler.
func NewReportHandler(svc reporting.Service, logger logging.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// generateReportRequest is the request body for Generate.
type generateReportRequest struct {
	EntityName string     `json:"entity_name"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// ReportListResponse is the response body for List.
type ReportListResponse struct {
	EntityName string                     `json:"entity_name"`
	Reports    []reporting.ArchivedReport `json:"reports"`
	Count      int                        `json:"count"`
}

// Generate aggregates one entity's decision history into a report, archives
// it, and returns the document with its download link.
// POST /api/v1/reports
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Debug("malformed report request", logging.Err(err))
		writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.Generate(r.Context(), reporting.GenerateRequest{
		EntityName: body.EntityName,
		From:       body.From,
		To:         body.To,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// List returns the archived reports of one entity, newest keys last.
// GET /api/v1/reports?entity=...&limit=...
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	limit := parseLimit(r, 50)

	reports, err := h.svc.List(r.Context(), entity, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReportListResponse{
		EntityName: entity,
		Reports:    reports,
		Count:      len(reports),
	})
}

// Download streams one archived report. The object key travels as a query
// parameter because report keys contain slashes.
// GET /api/v1/reports/download?key=...
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	payload, err := h.svc.Download(r.Context(), key)
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(payload.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Data); err != nil {
		// Too late for an error response; the line above already committed 200.
		h.logger.Warn("report download interrupted",
			logging.String("key", key),
			logging.Err(err))
	}
}
