package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/api"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/coverpage"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// VerificationResponse is the verification state of the loaded certificate.
type VerificationResponse struct {
	CertificateID string                  `json:"certificateId,omitempty" example:"urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c"`
	Status        verification.Status     `json:"status" example:"SUCCESS"`
	RunGeneration uint64                  `json:"runGeneration" example:"2"`
	Steps         []certificate.StepView  `json:"steps"`
	Groups        []certificate.StepGroup `json:"groups"`

	// FinalStep is only present once a run has completed
	FinalStep *verification.FinalStep `json:"finalStep,omitempty"`
}

// NewVerificationResponse projects a store snapshot through the selectors.
func NewVerificationResponse(st certificate.State) VerificationResponse {
	resp := VerificationResponse{
		CertificateID: certificate.CertificateID(st),
		Status:        certificate.VerificationStatus(st),
		RunGeneration: st.Generation,
		Steps:         certificate.VerifiedSteps(st),
		Groups:        certificate.VerifiedStepGroups(st),
	}
	if resp.Steps == nil {
		resp.Steps = []certificate.StepView{}
	}
	if resp.Groups == nil {
		resp.Groups = []certificate.StepGroup{}
	}
	if fs, ok := certificate.FinalStep(st); ok {
		resp.FinalStep = &fs
	}
	return resp
}

// readBody reads the request body, mapping the size limit error set by the RequestSizeLimit middleware.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, api.NewRequestTooLargeError(fmt.Sprintf("Request body exceeds maximum allowed size (%d bytes)", maxErr.Limit))
		}
		return nil, api.WrapMalformedRequestError(err, "failed to read request body")
	}
	if len(body) == 0 {
		return nil, api.NewMalformedRequestError("request body is empty")
	}
	return body, nil
}

// HandleLoadCertificate godoc
//
//	@Summary		Load a certificate
//	@Description	Replaces the loaded certificate with the certificate document in the request body.
//	@Description
//	@Description	The verification steps are reset to NOT_STARTED and any run in progress is abandoned.
//	@Description	Unless automatic verification is disabled (DISABLE_AUTO_VERIFY) a verification run starts in the background;
//	@Description	follow it on `/v1/events` or poll `/v1/certificate/verification`.
//	@Tags			Certificate
//	@Accept			json
//	@Produce		json
//
//	@Param			certificate	body		object					true	"Blockcerts certificate document"
//
//	@Success		202			{object}	VerificationResponse	"Certificate loaded"
//	@Failure		400			{object}	api.ErrorResponse		"Malformed request or invalid certificate"
//	@Failure		413			{object}	api.ErrorResponse		"Request too large"
//
//	@Router			/v1/certificate [post]
func HandleLoadCertificate(store *certificate.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		def, err := certificate.ParseDefinition(body)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		logger.ContextWithLogAttrs(r.Context(), slog.String("certificate_id", def.ID))

		if err := store.UpdateCertificateDefinition(r.Context(), def); err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		api.RespondWithJSONPayload(w, http.StatusAccepted, NewVerificationResponse(store.State()))
	}
}

// HandleVerifyCertificate godoc
//
//	@Summary		Verify the loaded certificate
//	@Description	Runs a verification of the loaded certificate and waits for it to complete.
//	@Description
//	@Description	A failed verification is not an error: the response status is 200 and the verdict is in `status` and `finalStep`.
//	@Description	If the certificate is replaced while the run is in progress the response reflects the newly loaded certificate.
//	@Tags			Certificate
//	@Produce		json
//
//	@Success		200	{object}	VerificationResponse	"Verification completed"
//	@Failure		409	{object}	api.ErrorResponse		"No certificate loaded or verification disabled"
//	@Failure		504	{object}	api.ErrorResponse		"Verification timed out"
//
//	@Router			/v1/certificate/verify [post]
func HandleVerifyCertificate(store *certificate.Store, disabled bool, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if disabled {
			api.RespondWithErrorResponse(w, r, api.NewVerificationDisabledError("verification is disabled on this viewer"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		result, err := store.VerifyCertificate(ctx)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}
		if result.Status != "" {
			logger.ContextWithLogAttrs(r.Context(), slog.String("verification_status", string(result.Status)))
		}

		api.RespondWithJSONPayload(w, http.StatusOK, NewVerificationResponse(store.State()))
	}
}

// HandleGetVerification godoc
//
//	@Summary		Get the verification state
//	@Description	Returns the overall status, the ordered steps, the steps grouped by parent and (once a run has completed) the final step.
//	@Tags			Certificate
//	@Produce		json
//
//	@Success		200	{object}	VerificationResponse	"Verification state"
//
//	@Router			/v1/certificate/verification [get]
func HandleGetVerification(store *certificate.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, NewVerificationResponse(store.State()))
	}
}

// HandleCoverPage godoc
//
//	@Summary		Get the PDF cover page
//	@Description	Returns the printable cover page of the loaded certificate as an HTML fragment.
//	@Description
//	@Description	When the viewer is configured with RECORD_BASE_URL the page embeds a QR code linking to the certificate record
//	@Description	(RECORD_BASE_URL followed by the url-escaped certificate id).
//	@Description	Use `?format=json` to get the cover page fields instead.
//	@Tags			Certificate
//	@Produce		html
//	@Produce		json
//
//	@Param			format	query		string				false	"html (default) or json"
//
//	@Success		200		{string}	string				"Cover page"
//	@Failure		400		{object}	api.ErrorResponse	"Certificate document cannot be summarised"
//	@Failure		409		{object}	api.ErrorResponse	"No certificate loaded"
//
//	@Router			/v1/certificate/cover-page [get]
func HandleCoverPage(store *certificate.Store, recordBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def := store.State().Definition
		if def == nil {
			api.RespondWithErrorResponse(w, r, verification.NewNoCertificateError())
			return
		}

		cfg, err := blockcerts.CoverPageFor(def, blockcerts.RecordURL(recordBaseURL, def.ID))
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		if r.URL.Query().Get("format") == "json" {
			api.RespondWithJSONPayload(w, http.StatusOK, cfg)
			return
		}

		page, err := coverpage.Render(cfg)
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to render cover page"))
			return
		}
		api.RespondWithHTML(w, http.StatusOK, page)
	}
}
