package handlers

import (
	"net/http"

	"github.com/swaggo/swag"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/api"
)

// HandleOpenAPI godoc
//
//	@Summary		OpenAPI document
//	@Description	Returns the OpenAPI (swagger 2.0) description of this API.
//	@Tags			Common
//	@Produce		json
//
//	@Success		200	{object}	object	"OpenAPI document"
//
//	@Router			/docs/openapi.json [get]
func HandleOpenAPI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "API documentation is not registered"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc))
	}
}
