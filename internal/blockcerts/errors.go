package blockcerts

import "fmt"

// Error represents a structured error from the blockcerts package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeInvalidDocument ErrorCode = "INVALID_DOCUMENT"
	ErrCodeAnchor          ErrorCode = "ANCHOR_ERROR"
	ErrCodeIssuerKey       ErrorCode = "ISSUER_KEY_ERROR"
	ErrCodeCheckFailed     ErrorCode = "CHECK_FAILED"
)

// BlockcertsError is a structured error from the blockcerts package.
// The message is shown to users as the description of the failing step.
type BlockcertsError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *BlockcertsError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *BlockcertsError) Code() ErrorCode { return e.code }
func (e *BlockcertsError) Unwrap() error   { return e.wrapped }

// Message returns the user facing message without the wrapped cause.
func (e *BlockcertsError) Message() string { return e.message }

func NewInvalidDocumentError(msg string) error {
	return &BlockcertsError{code: ErrCodeInvalidDocument, message: msg}
}

func WrapInvalidDocumentError(err error, msg string) error {
	return &BlockcertsError{code: ErrCodeInvalidDocument, message: msg, wrapped: err}
}

// NewAnchorError is returned when an anchor cannot be resolved to a transaction.
func NewAnchorError(msg string) error {
	return &BlockcertsError{code: ErrCodeAnchor, message: msg}
}

func WrapAnchorError(err error, msg string) error {
	return &BlockcertsError{code: ErrCodeAnchor, message: msg, wrapped: err}
}

func NewIssuerKeyError(msg string) error {
	return &BlockcertsError{code: ErrCodeIssuerKey, message: msg}
}

func WrapIssuerKeyError(err error, msg string) error {
	return &BlockcertsError{code: ErrCodeIssuerKey, message: msg, wrapped: err}
}

// NewCheckFailedError is returned when a check ran to completion and the certificate did not pass it.
func NewCheckFailedError(msg string) error {
	return &BlockcertsError{code: ErrCodeCheckFailed, message: msg}
}

func WrapCheckFailedError(err error, msg string) error {
	return &BlockcertsError{code: ErrCodeCheckFailed, message: msg, wrapped: err}
}
