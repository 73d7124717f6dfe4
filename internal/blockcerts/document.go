package blockcerts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

// Document is the subset of a Blockcerts certificate the verifier reads.
type Document struct {
	ID               string           `json:"id"`
	Type             string           `json:"type,omitempty"`
	Badge            Badge            `json:"badge"`
	RecipientProfile RecipientProfile `json:"recipientProfile"`
	IssuedOn         time.Time        `json:"issuedOn"`
	Expires          *time.Time       `json:"expires,omitempty"`
	Signature        *Signature       `json:"signature,omitempty"`
}

// Badge describes the achievement and who awarded it.
type Badge struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Issuer      Issuer `json:"issuer"`
}

// Issuer is the issuer profile embedded in the badge.
//
// Signing keys are pinned by the operator or published through a JWKS document (JWKSURL) on the
// issuer's own host.
type Issuer struct {
	ID                string             `json:"id,omitempty"`
	Name              string             `json:"name"`
	URL               string             `json:"url,omitempty"`
	Email             string             `json:"email,omitempty"`
	Image             string             `json:"image,omitempty"`
	JWKSURL           string             `json:"jwksUrl,omitempty"`
	RevokedKeys       []string           `json:"revokedKeys,omitempty"`
	RevokedAssertions []RevokedAssertion `json:"revokedAssertions,omitempty"`
}

// RevokedAssertion marks a certificate id as revoked by its issuer.
type RevokedAssertion struct {
	ID               string `json:"id"`
	RevocationReason string `json:"revocationReason,omitempty"`
}

type RecipientProfile struct {
	Name      string `json:"name"`
	PublicKey string `json:"publicKey,omitempty"`
}

// Signature is the merkle proof block added at issuance.
type Signature struct {
	Type            string             `json:"type,omitempty"`
	TargetHash      string             `json:"targetHash"`
	MerkleRoot      string             `json:"merkleRoot"`
	Proof           []crypto.ProofNode `json:"proof"`
	Anchors         []Anchor           `json:"anchors"`
	IssuerSignature string             `json:"issuerSignature"`
}

// Anchor identifies the blockchain transaction that carries the merkle root.
type Anchor struct {
	SourceID string `json:"sourceId"`
	Type     string `json:"type,omitempty"`
	Chain    string `json:"chain"`
}

// ParseDocument decodes a certificate payload.
func ParseDocument(payload []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, WrapInvalidDocumentError(err, "certificate is not a valid Blockcerts document")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, NewInvalidDocumentError("certificate id is required")
	}
	return &doc, nil
}

// RevocationReason returns the reason the issuer gave for revoking the certificate, and whether it is revoked.
func (d *Document) RevocationReason() (string, bool) {
	for _, r := range d.Badge.Issuer.RevokedAssertions {
		if r.ID == d.ID {
			return r.RevocationReason, true
		}
	}
	return "", false
}

// Anchor returns the first anchor of the signature block.
func (d *Document) Anchor() (Anchor, bool) {
	if d.Signature == nil || len(d.Signature.Anchors) == 0 {
		return Anchor{}, false
	}
	return d.Signature.Anchors[0], true
}
