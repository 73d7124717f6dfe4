package api

// errors.go defines the error codes returned by the HTTP API

import "fmt"

// ApiError represents a structured error raised by the HTTP layer itself.
type ApiError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *ApiError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ApiError) Code() ErrorCode { return e.code }
func (e *ApiError) Unwrap() error   { return e.wrapped }

// ErrorCode is used in errors returned by the API.
//
//   - 7000-7999 technical errors: the request could not be processed because of the supplied data or a server problem.
//   - 8000-8999 functional errors: the request was valid but the viewer state does not allow it.
type ErrorCode int

const (
	// ErrCodeInternalError is used when an unexpected server error occurs
	ErrCodeInternalError ErrorCode = 7001

	// ErrCodeMalformedRequest is used when the request body cannot be parsed
	ErrCodeMalformedRequest ErrorCode = 7002

	// ErrCodeInvalidCertificate is used when the certificate document is not a usable definition
	// (not JSON, missing id, rejected by the verifier's plan)
	ErrCodeInvalidCertificate ErrorCode = 7003

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = 7004

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 7005

	// ErrCodeVerificationError is used when a verification run could not be executed
	ErrCodeVerificationError ErrorCode = 7006

	// ErrCodeNoCertificate is used when an operation needs a loaded certificate and none is loaded
	ErrCodeNoCertificate ErrorCode = 8001

	// ErrCodeNotFound is used when a requested resource does not exist
	ErrCodeNotFound ErrorCode = 8002

	// ErrCodeVerificationDisabled is used when verification is requested while it is disabled
	ErrCodeVerificationDisabled ErrorCode = 8003
)

func NewInternalError(msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg}
}

func WrapInternalError(err error, msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

func NewMalformedRequestError(msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg}
}

func WrapMalformedRequestError(err error, msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

func NewRateLimitError(msg string) error {
	return &ApiError{code: ErrCodeRateLimitExceeded, message: msg}
}

func NewRequestTooLargeError(msg string) error {
	return &ApiError{code: ErrCodeRequestTooLarge, message: msg}
}

func NewNotFoundError(msg string) error {
	return &ApiError{code: ErrCodeNotFound, message: msg}
}

func NewVerificationDisabledError(msg string) error {
	return &ApiError{code: ErrCodeVerificationDisabled, message: msg}
}
