package certificate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// Definition is a loaded certificate document.
// The payload is opaque to the store; only the verifier interprets it.
type Definition struct {
	ID      string
	Payload json.RawMessage
}

// ParseDefinition validates that data is a JSON object with a non-empty string "id" and returns the definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var header struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, verification.WrapInvalidDefinitionError(err, "certificate is not a valid JSON object")
	}
	if header.ID == nil || strings.TrimSpace(*header.ID) == "" {
		return nil, verification.NewInvalidDefinitionError("certificate id is required")
	}

	payload := make(json.RawMessage, len(data))
	copy(payload, data)

	return &Definition{ID: *header.ID, Payload: payload}, nil
}

func (d *Definition) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("certificate %s", d.ID)
}
