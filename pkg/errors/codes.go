package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeStorageError       ErrorCode = "COMMON_010"
	ErrCodeMessagingError     ErrorCode = "COMMON_011"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"
)

// Structure parsing error codes.
const (
	ErrCodeStructureEmpty     ErrorCode = "STRUCT_001"
	ErrCodeStructureMalformed ErrorCode = "STRUCT_002"
	ErrCodeStructureTooLarge  ErrorCode = "STRUCT_003"
)

// Analysis engine error codes.
const (
	ErrCodeNoLigands      ErrorCode = "ENGINE_001"
	ErrCodeNoBindingSites ErrorCode = "ENGINE_002"
	ErrCodeStageFailed    ErrorCode = "ENGINE_003"
	ErrCodeInvalidCutoff  ErrorCode = "ENGINE_004"
)

// Analysis job error codes.
const (
	ErrCodeJobNotFound     ErrorCode = "JOB_001"
	ErrCodeJobInvalidState ErrorCode = "JOB_002"
	ErrCodeJobEnqueue      ErrorCode = "JOB_003"
)

// Short aliases used at most call sites.
const (
	CodeUnknown        = ErrorCode("UNKNOWN")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeStorageError   = ErrCodeStorageError
	CodeMessagingError = ErrCodeMessagingError

	CodeStructureEmpty     = ErrCodeStructureEmpty
	CodeStructureMalformed = ErrCodeStructureMalformed
	CodeNoLigands          = ErrCodeNoLigands
	CodeNoBindingSites     = ErrCodeNoBindingSites
	CodeStageFailed        = ErrCodeStageFailed
	CodeInvalidCutoff      = ErrCodeInvalidCutoff
	CodeJobNotFound        = ErrCodeJobNotFound
	CodeJobInvalidState    = ErrCodeJobInvalidState
	CodeJobEnqueue         = ErrCodeJobEnqueue
)

// HTTPStatus maps an ErrorCode to the HTTP status the API layer should emit.
// Unknown codes map to 500 so that a missing entry can never downgrade an
// error into a success.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidCutoff,
		ErrCodeStructureEmpty, ErrCodeStructureMalformed, ErrCodeStructureTooLarge,
		ErrCodeNoLigands, ErrCodeNoBindingSites:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeJobNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeJobInvalidState:
		return http.StatusConflict
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
