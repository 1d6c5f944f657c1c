// Package handlers implements the HTTP handlers of the CompliSense API. Each
// handler decodes the request, delegates to an application service, and writes
// the service's DTO or mapped error back to the caller.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
)

// ErrorResponse is the JSON payload returned for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorBody wraps ErrorResponse under the "error" key all endpoints share.
type errorBody struct {
	Error ErrorResponse `json:"error"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a structured error response with the given status code.
func writeError(w http.ResponseWriter, status int, code appErrors.ErrorCode, message string) {
	writeJSON(w, status, errorBody{Error: ErrorResponse{Code: string(code), Message: message}})
}

// writeAppError maps a service error onto its HTTP status through the error
// code table and writes the structured response. Unrecognized errors become a
// generic 500 so internals never leak to callers.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErrors.HTTPStatusForCode(appErr.Code), appErr.Code, appErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, appErrors.ErrCodeInternal, "internal server error")
}

// parsePagination reads page and page_size query parameters, keeping defaults
// for absent or malformed values. Range enforcement stays with
// common.Pagination.Validate in the service layer.
func parsePagination(r *http.Request) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = n
		}
	}
	return p
}

// parseLimit reads the limit query parameter, returning def when absent or
// malformed.
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
