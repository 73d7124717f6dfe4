package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

func TestMapErrorToResponse(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    ErrorCode
		wantMessage string
	}{
		{"malformed request", NewMalformedRequestError("body is not JSON"), http.StatusBadRequest, ErrCodeMalformedRequest, "body is not JSON"},
		{"rate limit", NewRateLimitError("slow down"), http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "slow down"},
		{"too large", NewRequestTooLargeError("too big"), http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "too big"},
		{"not found", NewNotFoundError("no runs"), http.StatusNotFound, ErrCodeNotFound, "no runs"},
		{"disabled", NewVerificationDisabledError("off"), http.StatusConflict, ErrCodeVerificationDisabled, "off"},
		{"no certificate", verification.NewNoCertificateError(), http.StatusConflict, ErrCodeNoCertificate, ""},
		{"invalid definition", verification.NewInvalidDefinitionError("missing id"), http.StatusBadRequest, ErrCodeInvalidCertificate, "missing id"},
		{"wrapped invalid document", fmt.Errorf("load: %w", blockcerts.NewInvalidDocumentError("no signature")), http.StatusBadRequest, ErrCodeInvalidCertificate, "no signature"},
		{"anchor", blockcerts.NewAnchorError("unknown tx"), http.StatusBadGateway, ErrCodeVerificationError, "unknown tx"},
		{"crypto validation", crypto.NewValidationError("bad json"), http.StatusBadRequest, ErrCodeInvalidCertificate, "bad json"},
		{"crypto internal", crypto.NewInternalError("boom"), http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"},
		{"unmapped", errors.New("secret detail"), http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/certificate", nil)
			resp := MapErrorToResponse(tt.err, req)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if resp.StatusCodeText != http.StatusText(tt.wantStatus) {
				t.Errorf("status text = %q", resp.StatusCodeText)
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("expected one detailed error, got %d", len(resp.Errors))
			}
			if resp.Errors[0].ErrorCode != tt.wantCode {
				t.Errorf("error code = %d, want %d", resp.Errors[0].ErrorCode, tt.wantCode)
			}
			if !strings.Contains(resp.Errors[0].ErrorCodeMessage, tt.wantMessage) {
				t.Errorf("message %q does not contain %q", resp.Errors[0].ErrorCodeMessage, tt.wantMessage)
			}
			if resp.HTTPMethod != http.MethodPost || resp.RequestURI != "/v1/certificate" {
				t.Errorf("request fields not copied: %+v", resp)
			}
		})
	}
}

func TestRespondWithErrorResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/certificate/verification", nil)
	rr := httptest.NewRecorder()

	RespondWithErrorResponse(rr, req, verification.NewNoCertificateError())

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.StatusCodeMessage != "No certificate loaded" {
		t.Errorf("StatusCodeMessage = %q", body.StatusCodeMessage)
	}
	if body.ErrorDateTime == "" {
		t.Error("ErrorDateTime not set")
	}
}
