package crypto

import "fmt"

// Error represents a structured error from the crypto package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "validation"
	ErrCodeHashMismatch     ErrorCode = "hash_mismatch"
	ErrCodeMerkleProof      ErrorCode = "merkle_proof"
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeKeyManagement    ErrorCode = "key_management"
	ErrCodeInternal         ErrorCode = "internal"
)

// CryptoError represents a structured error from the crypto package
type CryptoError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode { return e.code }
func (e *CryptoError) Unwrap() error   { return e.wrapped }

// NewValidationError creates an error for malformed input: bad hex, invalid JSON,
// missing header fields or unsupported algorithms.
func NewValidationError(msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewHashMismatchError is returned when a computed digest differs from the expected one.
func NewHashMismatchError(expected, actual string) error {
	return &CryptoError{
		code:    ErrCodeHashMismatch,
		message: fmt.Sprintf("computed hash %s does not match expected hash %s", actual, expected),
	}
}

// NewMerkleProofError reports a malformed node in a merkle proof path.
func NewMerkleProofError(msg string, index int) error {
	return &CryptoError{code: ErrCodeMerkleProof, message: fmt.Sprintf("%s (proof index %d)", msg, index)}
}

// WrapMerkleProofError wraps an existing error as a merkle proof error.
func WrapMerkleProofError(err error, msg string, index int) error {
	return &CryptoError{code: ErrCodeMerkleProof, message: fmt.Sprintf("%s (proof index %d)", msg, index), wrapped: err}
}

// NewSignatureError creates a signature verification error.
func NewSignatureError(msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg}
}

// WrapSignatureError wraps an existing error as a signature error.
func WrapSignatureError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg, wrapped: err}
}

// NewKeyManagementError creates a key management error.
// Use this for key loading, key not found, invalid key format, or JWK parsing failures.
func NewKeyManagementError(msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg}
}

// WrapKeyManagementError wraps an existing error as a key management error.
func WrapKeyManagementError(err error, msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg, wrapped: err}
}
