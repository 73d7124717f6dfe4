package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// HandleIssuerKeys godoc
//
//	@Summary		Get pinned issuer keys
//	@Description	Returns the issuer public keys pinned by the operator of this viewer (PINNED_KEYS_DIR).
//	@Description
//	@Description	Pinned keys are trusted for issuer signatures in addition to the JWKS an issuer publishes on its own host.
//	@Description	The JWK set in the response conforms to the [JWK specification](https://datatracker.ietf.org/doc/html/rfc7517).
//	@Tags			Common
//
//	@Success		200	{object}	JWKSResponse	"JWK set"
//
//	@Router			/v1/issuer-keys [get]
func HandleIssuerKeys(keys jwk.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if keys == nil {
			_, _ = w.Write([]byte(`{"keys":[]}` + "\n"))
			return
		}
		if err := json.NewEncoder(w).Encode(keys); err != nil {
			http.Error(w, "Failed to encode JWK set", http.StatusInternalServerError)
			return
		}
	}
}

// JWKSResponse is used for swaggo documentation as swaggo doesn't support the jwk.Set interface type.
type JWKSResponse struct {
	Keys []map[string]any `json:"keys"`
}
