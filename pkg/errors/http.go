package errors

import (
	"net/http"
	"strings"
)

// HTTPStatusCode returns the appropriate HTTP status code for an error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return HTTPStatusFromCode(GetCode(err))
}

// HTTPStatusFromCode returns the HTTP status for an error code
func HTTPStatusFromCode(code ErrorCode) int {
	switch code {
	// 422 Unprocessable Entity - Request was well-formed but semantically invalid
	case ErrCodeValidationRequired,
		ErrCodeValidationInvalid,
		ErrCodeValidationRange:
		return http.StatusUnprocessableEntity

	// 404 Not Found - Resource doesn't exist
	case ErrCodeBookNotFound:
		return http.StatusNotFound

	// 500 Internal Server Error
	case ErrCodeInternal,
		ErrCodeStorageFailure,
		ErrCodeStorageConnection,
		ErrCodeStorageInitialization,
		ErrCodeAdapterDuplicate,
		ErrCodeAdapterUnknown,
		ErrCodeAdapterTypeMismatch,
		ErrCodeConfiguration:
		return http.StatusInternalServerError

	// 503 Service Unavailable
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable

	default:
		// Try to infer from prefix
		codeStr := string(code)
		switch {
		case strings.HasPrefix(codeStr, "VALIDATION_"):
			return http.StatusUnprocessableEntity
		case strings.HasPrefix(codeStr, "STORAGE_"), strings.HasPrefix(codeStr, "ADAPTER_"):
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
}

// HTTPError represents an HTTP-specific error response
type HTTPError struct {
	Status  int       `json:"status"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ToHTTPError converts an error to an HTTP error response
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{
			Status:  http.StatusOK,
			Message: "OK",
		}
	}

	appErr, ok := err.(*AppError)
	if !ok {
		appErr = Internal(err)
	}

	return HTTPError{
		Status:  HTTPStatusFromCode(appErr.Code),
		Code:    appErr.Code,
		Message: appErr.Message,
	}
}

// IsClientError returns true if the error is a client error (4xx)
func IsClientError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 400 && status < 500
}

// IsServerError returns true if the error is a server error (5xx)
func IsServerError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 500 && status < 600
}
