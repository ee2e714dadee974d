package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<NNN>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel codes that are not part of the module tables.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessageQueue       ErrorCode = "COMMON_017"
	ErrCodeStorage            ErrorCode = "COMMON_018"
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidRecord       ErrorCode = "MOL_002"
	ErrCodeMoleculeInvalidFormat       ErrorCode = "MOL_003"
	ErrCodeMoleculeNotFound            ErrorCode = "MOL_004"
	ErrCodeMoleculeAlreadyExists       ErrorCode = "MOL_005"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_007"
	ErrCodeSimilarityThresholdInvalid  ErrorCode = "MOL_010"
	ErrCodeSubstructureSearchFailed    ErrorCode = "MOL_012"
)

// Substructure pattern Error Codes
const (
	ErrCodePatternInvalidSMARTS  ErrorCode = "SMA_001"
	ErrCodePatternBudgetExceeded ErrorCode = "SMA_002"
	ErrCodePatternLibraryInvalid ErrorCode = "SMA_003"
	ErrCodePatternTooMany        ErrorCode = "SMA_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessageQueue:       http.StatusInternalServerError,
	ErrCodeStorage:            http.StatusInternalServerError,

	ErrCodeMoleculeInvalidSMILES:       http.StatusBadRequest,
	ErrCodeMoleculeInvalidRecord:       http.StatusBadRequest,
	ErrCodeMoleculeInvalidFormat:       http.StatusBadRequest,
	ErrCodeMoleculeNotFound:            http.StatusNotFound,
	ErrCodeMoleculeAlreadyExists:       http.StatusConflict,
	ErrCodeFingerprintGenerationFailed: http.StatusInternalServerError,
	ErrCodeSimilarityThresholdInvalid:  http.StatusBadRequest,
	ErrCodeSubstructureSearchFailed:    http.StatusInternalServerError,

	ErrCodePatternInvalidSMARTS:  http.StatusBadRequest,
	ErrCodePatternBudgetExceeded: http.StatusUnprocessableEntity,
	ErrCodePatternLibraryInvalid: http.StatusInternalServerError,
	ErrCodePatternTooMany:        http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessageQueue:       "message queue error",
	ErrCodeStorage:            "object storage error",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES",
	ErrCodeMoleculeInvalidRecord:       "invalid structure-data record",
	ErrCodeMoleculeInvalidFormat:       "unsupported molecule format",
	ErrCodeMoleculeNotFound:            "molecule not found",
	ErrCodeMoleculeAlreadyExists:       "molecule already exists",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeSimilarityThresholdInvalid:  "invalid similarity threshold",
	ErrCodeSubstructureSearchFailed:    "substructure search failed",

	ErrCodePatternInvalidSMARTS:  "invalid SMARTS pattern",
	ErrCodePatternBudgetExceeded: "substructure match exceeded its step budget",
	ErrCodePatternLibraryInvalid: "pattern library contains an invalid key",
	ErrCodePatternTooMany:        "too many patterns in one request",
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
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
