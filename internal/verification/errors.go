package verification

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the verification packages.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeDuplicateStepCode indicates a step plan that declares the same code twice.
	ErrCodeDuplicateStepCode ErrorCode = "DUPLICATE_STEP_CODE"

	// ErrCodeUnknownStepCode indicates an update for a code that is not in the queue.
	ErrCodeUnknownStepCode ErrorCode = "UNKNOWN_STEP_CODE"

	// ErrCodeInvalidTransition indicates a step status regression within a run.
	ErrCodeInvalidTransition ErrorCode = "INVALID_STEP_TRANSITION"

	// ErrCodeVerifierInvocation indicates the external verifier failed or panicked.
	ErrCodeVerifierInvocation ErrorCode = "VERIFIER_INVOCATION_FAILURE"

	// ErrCodeStaleRun indicates a write from a superseded run that was dropped.
	ErrCodeStaleRun ErrorCode = "STALE_RUN_DISCARDED"

	// ErrCodeNoCertificate indicates verification was requested before a certificate was loaded.
	ErrCodeNoCertificate ErrorCode = "NO_CERTIFICATE"

	// ErrCodeInvalidDefinition indicates a malformed certificate definition or step plan.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
)

// VerificationError is the concrete Error type used by the verification packages.
type VerificationError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *VerificationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *VerificationError) Code() ErrorCode { return e.code }
func (e *VerificationError) Unwrap() error   { return e.wrapped }

// HasCode reports whether err (or an error it wraps) is a VerificationError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var verr *VerificationError
	return errors.As(err, &verr) && verr.Code() == code
}

func NewDuplicateStepCodeError(stepCode string) error {
	return &VerificationError{code: ErrCodeDuplicateStepCode, message: fmt.Sprintf("duplicate step code %q", stepCode)}
}

func NewUnknownStepCodeError(stepCode string) error {
	return &VerificationError{code: ErrCodeUnknownStepCode, message: fmt.Sprintf("unknown step code %q", stepCode)}
}

func NewInvalidTransitionError(stepCode string, from, to Status) error {
	return &VerificationError{
		code:    ErrCodeInvalidTransition,
		message: fmt.Sprintf("step %q cannot move from %s to %s", stepCode, from, to),
	}
}

// WrapVerifierInvocationError wraps an error returned (or a panic raised) by the external verifier.
func WrapVerifierInvocationError(err error, msg string) error {
	return &VerificationError{code: ErrCodeVerifierInvocation, message: msg, wrapped: err}
}

func NewStaleRunError(runGeneration, currentGeneration uint64) error {
	return &VerificationError{
		code:    ErrCodeStaleRun,
		message: fmt.Sprintf("run %d superseded by run %d", runGeneration, currentGeneration),
	}
}

func NewNoCertificateError() error {
	return &VerificationError{code: ErrCodeNoCertificate, message: "no certificate definition loaded"}
}

func NewInvalidDefinitionError(msg string) error {
	return &VerificationError{code: ErrCodeInvalidDefinition, message: msg}
}

func WrapInvalidDefinitionError(err error, msg string) error {
	return &VerificationError{code: ErrCodeInvalidDefinition, message: msg, wrapped: err}
}
