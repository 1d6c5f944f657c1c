package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

// DecisionSearcher runs full-text queries over the decision index.
type DecisionSearcher interface {
	Search(ctx context.Context, q opensearch.DecisionQuery) (*opensearch.DecisionPage, error)
}

// SearchHandler serves full-text search over recorded decisions.
type SearchHandler struct {
	searcher DecisionSearcher
	logger   logging.Logger
}

// NewSearchHandler creates a decision search handler.
func NewSearchHandler(searcher DecisionSearcher, logger logging.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// Search queries the decision index. Filters and the text query come from
// query parameters; pagination follows the usual page/page_size convention.
// GET /api/v1/decisions/search?q=...&entity=...&category=...&decision=...
// &risk_level=...&jurisdiction=...&min_score=...&max_score=...
// &analyzed_after=...&analyzed_before=...&sort=...&order=asc|desc
// &facets=true&highlights=true
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pagination := parsePagination(r)

	query := opensearch.DecisionQuery{
		Text:           q.Get("q"),
		EntityName:     q.Get("entity"),
		Category:       q.Get("category"),
		Decision:       q.Get("decision"),
		RiskLevel:      q.Get("risk_level"),
		Jurisdiction:   q.Get("jurisdiction"),
		Page:           pagination.Page,
		PageSize:       pagination.PageSize,
		SortBy:         q.Get("sort"),
		SortAsc:        q.Get("order") == "asc",
		WithFacets:     q.Get("facets") == "true",
		WithHighlights: q.Get("highlights") == "true",
	}

	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "min_score must be a number")
			return
		}
		query.MinRiskScore = &f
	}
	if v := q.Get("max_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "max_score must be a number")
			return
		}
		query.MaxRiskScore = &f
	}
	if v := q.Get("analyzed_after"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "analyzed_after must be an RFC 3339 timestamp")
			return
		}
		query.AnalyzedAfter = &ts
	}
	if v := q.Get("analyzed_before"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, appErrors.ErrCodeBadRequest, "analyzed_before must be an RFC 3339 timestamp")
			return
		}
		query.AnalyzedBefore = &ts
	}

	page, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}
