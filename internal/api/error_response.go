package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A description of the failure with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The request id (X-Request-Id) of the failed request
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError is one entry of ErrorResponse.Errors
type DetailedError struct {
	ErrorCode        ErrorCode `json:"errorCode"`
	ErrorCodeText    string    `json:"errorCodeText"`
	ErrorCodeMessage string    `json:"errorCodeMessage"`
}

// mapping is the result of classifying an error.
type mapping struct {
	statusCode int
	code       ErrorCode
	text       string
}

var internalErrorMapping = mapping{http.StatusInternalServerError, ErrCodeInternalError, "Internal Error"}

// MapErrorToResponse maps api, verification, blockcerts, crypto or generic errors to an error response.
//
// The error code message carries the error text for client errors. Internal errors get a fixed message;
// the full error is logged by RespondWithErrorResponse.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	m, ok := classify(err)
	message := err.Error()
	if !ok {
		reqLogger := logger.ContextRequestLogger(r.Context())
		reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
			slog.String("error_type", fmt.Sprintf("%T", err)),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
	}
	if m.statusCode >= http.StatusInternalServerError {
		message = "An internal error occurred"
	}

	return &ErrorResponse{
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   m.statusCode,
		StatusCodeText:               http.StatusText(m.statusCode),
		StatusCodeMessage:            m.text,
		ProviderCorrelationReference: requestID,
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        m.code,
				ErrorCodeText:    m.text,
				ErrorCodeMessage: message,
			},
		},
	}
}

// classify finds the most specific error type in the chain. ok is false for errors with no known type.
func classify(err error) (mapping, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return fromApi(apiErr), true
	}

	var verErr *verification.VerificationError
	if errors.As(err, &verErr) {
		return fromVerification(verErr), true
	}

	var bcErr *blockcerts.BlockcertsError
	if errors.As(err, &bcErr) {
		return fromBlockcerts(bcErr), true
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return fromCrypto(cryptoErr), true
	}

	return internalErrorMapping, false
}

func fromApi(err *ApiError) mapping {
	switch err.Code() {
	case ErrCodeMalformedRequest:
		return mapping{http.StatusBadRequest, err.Code(), "Malformed request"}
	case ErrCodeInvalidCertificate:
		return mapping{http.StatusBadRequest, err.Code(), "Invalid certificate"}
	case ErrCodeRateLimitExceeded:
		return mapping{http.StatusTooManyRequests, err.Code(), "Rate limit exceeded"}
	case ErrCodeRequestTooLarge:
		return mapping{http.StatusRequestEntityTooLarge, err.Code(), "Request too large"}
	case ErrCodeNoCertificate:
		return mapping{http.StatusConflict, err.Code(), "No certificate loaded"}
	case ErrCodeNotFound:
		return mapping{http.StatusNotFound, err.Code(), "Not found"}
	case ErrCodeVerificationDisabled:
		return mapping{http.StatusConflict, err.Code(), "Verification disabled"}
	default:
		return internalErrorMapping
	}
}

func fromVerification(err *verification.VerificationError) mapping {
	switch err.Code() {
	case verification.ErrCodeNoCertificate:
		return mapping{http.StatusConflict, ErrCodeNoCertificate, "No certificate loaded"}
	case verification.ErrCodeInvalidDefinition, verification.ErrCodeDuplicateStepCode:
		return mapping{http.StatusBadRequest, ErrCodeInvalidCertificate, "Invalid certificate"}
	case verification.ErrCodeVerifierInvocation:
		return mapping{http.StatusBadGateway, ErrCodeVerificationError, "Verification error"}
	default:
		return internalErrorMapping
	}
}

func fromBlockcerts(err *blockcerts.BlockcertsError) mapping {
	switch err.Code() {
	case blockcerts.ErrCodeInvalidDocument:
		return mapping{http.StatusBadRequest, ErrCodeInvalidCertificate, "Invalid certificate"}
	case blockcerts.ErrCodeAnchor, blockcerts.ErrCodeIssuerKey:
		return mapping{http.StatusBadGateway, ErrCodeVerificationError, "Verification error"}
	default:
		return internalErrorMapping
	}
}

func fromCrypto(err *crypto.CryptoError) mapping {
	switch err.Code() {
	case crypto.ErrCodeValidation:
		return mapping{http.StatusBadRequest, ErrCodeInvalidCertificate, "Invalid certificate"}
	default:
		return internalErrorMapping
	}
}
