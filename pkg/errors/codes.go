package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the first underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Short aliases used at call sites.
const (
	CodeUnknown      = ErrorCode("")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
)

// Query interpretation Error Codes
const (
	ErrCodeQueryEmpty         ErrorCode = "QRY_001"
	ErrCodeScopeConflict      ErrorCode = "QRY_002"
	ErrCodeScopeInvalid       ErrorCode = "QRY_003"
	ErrCodeNoProductMatch     ErrorCode = "QRY_004"
	ErrCodeCounterpartyAbsent ErrorCode = "QRY_005"
)

// Aggregation store Error Codes
const (
	ErrCodeAggregationFailed ErrorCode = "AGG_001"
	ErrCodeDirectionInvalid  ErrorCode = "AGG_002"
)

// Ranking model Error Codes
const (
	ErrCodeModelUnavailable ErrorCode = "RNK_001"
	ErrCodeModelCorrupt     ErrorCode = "RNK_002"
	ErrCodeFeatureMismatch  ErrorCode = "RNK_003"
)

// Training pipeline Error Codes
const (
	ErrCodeTrainingDataInsufficient ErrorCode = "TRN_001"
	ErrCodeTrainingFailed           ErrorCode = "TRN_002"
	ErrCodeTrainingInProgress       ErrorCode = "TRN_003"
	ErrCodeModelPublishFailed       ErrorCode = "TRN_004"
)

// Link prediction Error Codes
const (
	ErrCodeCompanyUnknown      ErrorCode = "LNK_001"
	ErrCodeEmbeddingStoreError ErrorCode = "LNK_002"
	ErrCodeGraphStoreError     ErrorCode = "LNK_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeQueryEmpty:         http.StatusBadRequest,
	ErrCodeScopeConflict:      http.StatusUnprocessableEntity,
	ErrCodeScopeInvalid:       http.StatusBadRequest,
	ErrCodeNoProductMatch:     http.StatusOK,
	ErrCodeCounterpartyAbsent: http.StatusNotFound,

	ErrCodeAggregationFailed: http.StatusInternalServerError,
	ErrCodeDirectionInvalid:  http.StatusBadRequest,

	ErrCodeModelUnavailable: http.StatusServiceUnavailable,
	ErrCodeModelCorrupt:     http.StatusInternalServerError,
	ErrCodeFeatureMismatch:  http.StatusInternalServerError,

	ErrCodeTrainingDataInsufficient: http.StatusUnprocessableEntity,
	ErrCodeTrainingFailed:           http.StatusInternalServerError,
	ErrCodeTrainingInProgress:       http.StatusConflict,
	ErrCodeModelPublishFailed:       http.StatusInternalServerError,

	ErrCodeCompanyUnknown:      http.StatusNotFound,
	ErrCodeEmbeddingStoreError: http.StatusInternalServerError,
	ErrCodeGraphStoreError:     http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeQueryEmpty:         "query text must not be empty",
	ErrCodeScopeConflict:      "scope conflicts with country filter",
	ErrCodeScopeInvalid:       "scope must be PAKISTAN or WORLDWIDE",
	ErrCodeNoProductMatch:     "No matching products found.",
	ErrCodeCounterpartyAbsent: "counterparty has no trade history for this product",

	ErrCodeAggregationFailed: "trade aggregation failed",
	ErrCodeDirectionInvalid:  "direction must be buyers or sellers",

	ErrCodeModelUnavailable: "ranking model unavailable",
	ErrCodeModelCorrupt:     "ranking model artifact is corrupt",
	ErrCodeFeatureMismatch:  "ranking model feature count mismatch",

	ErrCodeTrainingDataInsufficient: "not enough query groups to train",
	ErrCodeTrainingFailed:           "ranking model training failed",
	ErrCodeTrainingInProgress:       "a training run is already in progress",
	ErrCodeModelPublishFailed:       "failed to publish ranking model",

	ErrCodeCompanyUnknown:      "company not found in trade history",
	ErrCodeEmbeddingStoreError: "embedding store error",
	ErrCodeGraphStoreError:     "trade graph store error",
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
	parts := strings.SplitN(string(code), "_", 2)
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
