package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeValidation, 422},
		{ErrCodeAnalysisNotFound, 404},
		{ErrCodeRiskFactorOutOfRange, 400},
		{ErrCodeScenarioBaselineMissing, 404},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "decision analysis not found", DefaultMessageForCode(ErrCodeAnalysisNotFound))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeScenarioValueOutOfRange))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeMessageQueueError))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "RSK", ModuleForCode(ErrCodeRiskFactorOutOfRange))
	assert.Equal(t, "JUR", ModuleForCode(ErrCodeJurisdictionUnknown))
	assert.Equal(t, "DEC", ModuleForCode(ErrCodeAnalysisNotFound))
	assert.Equal(t, "SUG", ModuleForCode(ErrCodeSuggestionScanFailed))
	assert.Equal(t, "SIM", ModuleForCode(ErrCodeScenarioFactorUnknown))
	assert.Equal(t, "INF", ModuleForCode(ErrCodeDatabaseError))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	allCodes := []ErrorCode{
		ErrCodeInternal, ErrCodeBadRequest, ErrCodeRiskFactorOutOfRange,
		ErrCodeJurisdictionUnknown, ErrCodeTaskDescriptionEmpty,
		ErrCodeSuggestionScanFailed, ErrCodeScenarioFactorUnknown,
		ErrCodeDatabaseError, ErrCodeReportExportError,
	}
	for _, code := range allCodes {
		assert.Regexp(t, re, string(code))
	}
}

func TestErrorCodeMappings_Completeness(t *testing.T) {
	// Every code in the status map must carry a default message and vice versa.
	for code := range ErrorCodeHTTPStatus {
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing message for %s", code)
	}
	for code := range ErrorCodeMessage {
		_, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "missing status for %s", code)
	}
}
