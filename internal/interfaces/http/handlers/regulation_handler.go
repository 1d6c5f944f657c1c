package handlers

import (
	"net/http"

	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// RegulationHandler serves the static regulation catalog.
type RegulationHandler struct {
	analyzer *risk.JurisdictionAnalyzer
}

// NewRegulationHandler creates a regulation catalog handler.
func NewRegulationHandler(analyzer *risk.JurisdictionAnalyzer) *RegulationHandler {
	return &RegulationHandler{analyzer: analyzer}
}

// RegulationCatalogResponse is the response body for Catalog.
type RegulationCatalogResponse struct {
	Regulations []compliance.RegulationDTO `json:"regulations"`
	Count       int                        `json:"count"`
}

// Catalog lists every regulation the analyzer can cite, with its jurisdiction
// and applicability condition.
// GET /api/v1/regulations
func (h *RegulationHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	regs := h.analyzer.Catalog()
	writeJSON(w, http.StatusOK, RegulationCatalogResponse{
		Regulations: regs,
		Count:       len(regs),
	})
}
