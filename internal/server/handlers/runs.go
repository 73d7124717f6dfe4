package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/api"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/history"
)

const maxRunsLimit = 100

type RunsResponse struct {
	CertificateID string        `json:"certificateId"`
	Runs          []history.Run `json:"runs"`
}

// HandleListRuns godoc
//
//	@Summary		List verification runs
//	@Description	Returns the completed verification runs of a certificate, most recent first.
//	@Tags			Certificate
//	@Produce		json
//
//	@Param			certificateID	path		string				true	"Certificate id"
//	@Param			limit			query		int					false	"Maximum number of runs (default and maximum 100)"
//
//	@Success		200				{object}	RunsResponse		"Verification runs"
//	@Failure		400				{object}	api.ErrorResponse	"Invalid limit"
//
//	@Router			/v1/certificates/{certificateID}/runs [get]
func HandleListRuns(recorder history.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		certificateID := chi.URLParam(r, "certificateID")

		limit := maxRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("limit must be a positive integer"))
				return
			}
			limit = min(n, maxRunsLimit)
		}

		runs, err := recorder.ListByCertificate(r.Context(), certificateID, limit)
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to list verification runs"))
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}

		api.RespondWithJSONPayload(w, http.StatusOK, RunsResponse{CertificateID: certificateID, Runs: runs})
	}
}
