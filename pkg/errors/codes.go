package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeConfigInvalid      ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"
)

// Risk Model Error Codes
const (
	ErrCodeRiskFactorOutOfRange ErrorCode = "RSK_001"
	ErrCodeRiskWeightsInvalid   ErrorCode = "RSK_002"
	ErrCodeRiskThresholdInvalid ErrorCode = "RSK_003"
)

// Jurisdiction Module Error Codes
const (
	ErrCodeJurisdictionUnknown    ErrorCode = "JUR_001"
	ErrCodeRegulationLookupFailed ErrorCode = "JUR_002"
)

// Decision Engine Error Codes
const (
	ErrCodeTaskDescriptionEmpty ErrorCode = "DEC_001"
	ErrCodeEntityTypeInvalid    ErrorCode = "DEC_002"
	ErrCodeTaskCategoryInvalid  ErrorCode = "DEC_003"
	ErrCodeImpactInvalid        ErrorCode = "DEC_004"
	ErrCodeViolationsNegative   ErrorCode = "DEC_005"
	ErrCodeAnalysisNotFound     ErrorCode = "DEC_006"
	ErrCodeAnalysisFailed       ErrorCode = "DEC_007"
)

// Suggestion Module Error Codes
const (
	ErrCodeSuggestionScanFailed ErrorCode = "SUG_001"
	ErrCodeTriggerTypeInvalid   ErrorCode = "SUG_002"
	ErrCodeHistoryUnavailable   ErrorCode = "SUG_003"
)

// Simulation (What-If) Module Error Codes
const (
	ErrCodeScenarioFactorUnknown    ErrorCode = "SIM_001"
	ErrCodeScenarioValueOutOfRange  ErrorCode = "SIM_002"
	ErrCodeScenarioBaselineMissing  ErrorCode = "SIM_003"
	ErrCodeScenarioComparisonFailed ErrorCode = "SIM_004"
)

// Infrastructure Error Codes
const (
	ErrCodeDatabaseError     ErrorCode = "INF_001"
	ErrCodeCacheError        ErrorCode = "INF_002"
	ErrCodeMessageQueueError ErrorCode = "INF_003"
	ErrCodeSearchIndexError  ErrorCode = "INF_004"
	ErrCodeVectorStoreError  ErrorCode = "INF_005"
	ErrCodeGraphStoreError   ErrorCode = "INF_006"
	ErrCodeObjectStoreError  ErrorCode = "INF_007"
	ErrCodeReportExportError ErrorCode = "INF_008"
)

// Aliases used throughout the codebase
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeValidation     = ErrCodeValidation
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")

	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeMessageQueueError
	CodeSearchError       = ErrCodeSearchIndexError
	CodeStorageError      = ErrCodeObjectStoreError

	CodeAnalysisNotFound = ErrCodeAnalysisNotFound
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeConfigInvalid:      http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeRiskFactorOutOfRange: http.StatusBadRequest,
	ErrCodeRiskWeightsInvalid:   http.StatusInternalServerError,
	ErrCodeRiskThresholdInvalid: http.StatusInternalServerError,

	ErrCodeJurisdictionUnknown:    http.StatusBadRequest,
	ErrCodeRegulationLookupFailed: http.StatusInternalServerError,

	ErrCodeTaskDescriptionEmpty: http.StatusBadRequest,
	ErrCodeEntityTypeInvalid:    http.StatusBadRequest,
	ErrCodeTaskCategoryInvalid:  http.StatusBadRequest,
	ErrCodeImpactInvalid:        http.StatusBadRequest,
	ErrCodeViolationsNegative:   http.StatusBadRequest,
	ErrCodeAnalysisNotFound:     http.StatusNotFound,
	ErrCodeAnalysisFailed:       http.StatusInternalServerError,

	ErrCodeSuggestionScanFailed: http.StatusInternalServerError,
	ErrCodeTriggerTypeInvalid:   http.StatusBadRequest,
	ErrCodeHistoryUnavailable:   http.StatusServiceUnavailable,

	ErrCodeScenarioFactorUnknown:    http.StatusBadRequest,
	ErrCodeScenarioValueOutOfRange:  http.StatusBadRequest,
	ErrCodeScenarioBaselineMissing:  http.StatusNotFound,
	ErrCodeScenarioComparisonFailed: http.StatusInternalServerError,

	ErrCodeDatabaseError:     http.StatusInternalServerError,
	ErrCodeCacheError:        http.StatusInternalServerError,
	ErrCodeMessageQueueError: http.StatusInternalServerError,
	ErrCodeSearchIndexError:  http.StatusInternalServerError,
	ErrCodeVectorStoreError:  http.StatusInternalServerError,
	ErrCodeGraphStoreError:   http.StatusInternalServerError,
	ErrCodeObjectStoreError:  http.StatusInternalServerError,
	ErrCodeReportExportError: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeConfigInvalid:      "invalid configuration",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeRiskFactorOutOfRange: "risk factor score out of [0,1] range",
	ErrCodeRiskWeightsInvalid:   "risk factor weights do not sum to 1.0",
	ErrCodeRiskThresholdInvalid: "risk threshold outside [0,1]",

	ErrCodeJurisdictionUnknown:    "unrecognized jurisdiction",
	ErrCodeRegulationLookupFailed: "regulation lookup failed",

	ErrCodeTaskDescriptionEmpty: "task description is empty",
	ErrCodeEntityTypeInvalid:    "unrecognized entity type",
	ErrCodeTaskCategoryInvalid:  "unrecognized task category",
	ErrCodeImpactInvalid:        "unrecognized potential impact",
	ErrCodeViolationsNegative:   "previous violations must be >= 0",
	ErrCodeAnalysisNotFound:     "decision analysis not found",
	ErrCodeAnalysisFailed:       "decision analysis failed",

	ErrCodeSuggestionScanFailed: "suggestion scan failed",
	ErrCodeTriggerTypeInvalid:   "unrecognized trigger type",
	ErrCodeHistoryUnavailable:   "decision history unavailable",

	ErrCodeScenarioFactorUnknown:    "unknown risk factor in scenario changes",
	ErrCodeScenarioValueOutOfRange:  "scenario factor value out of [0,1] range",
	ErrCodeScenarioBaselineMissing:  "scenario baseline analysis not found",
	ErrCodeScenarioComparisonFailed: "scenario comparison failed",

	ErrCodeDatabaseError:     "database error",
	ErrCodeCacheError:        "cache error",
	ErrCodeMessageQueueError: "message queue error",
	ErrCodeSearchIndexError:  "search index error",
	ErrCodeVectorStoreError:  "vector store error",
	ErrCodeGraphStoreError:   "graph store error",
	ErrCodeObjectStoreError:  "object store error",
	ErrCodeReportExportError: "report export failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
