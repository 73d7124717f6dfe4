// Package testutil builds signed certificates for tests outside the blockcerts package.
package testutil

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

// IssuedOn is the issue date of the certificates built by UnsignedCertificate
var IssuedOn = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

// Issuer is a test issuer with a fresh Ed25519 signing key
type Issuer struct {
	PrivateKey ed25519.PrivateKey
	KeyID      string
	PublicJWK  json.RawMessage
}

func NewIssuer() (*Issuer, error) {
	privateKey, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate issuer key: %w", err)
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)

	kid, err := crypto.KeyIDFromEd25519Key(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key id: %w", err)
	}
	key, err := crypto.Ed25519PublicKeyToJWK(publicKey, kid)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK: %w", err)
	}
	publicJWK, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWK: %w", err)
	}
	return &Issuer{PrivateKey: privateKey, KeyID: kid, PublicJWK: publicJWK}, nil
}

func (i *Issuer) PublicKey() ed25519.PublicKey {
	return i.PrivateKey.Public().(ed25519.PublicKey)
}

// PinKey writes the issuer public key to dir as issuer.public.jwk, for use as PINNED_KEYS_DIR
func (i *Issuer) PinKey(dir string) error {
	return crypto.SaveEd25519PublicKeyToJWKFile(i.PublicKey(), i.KeyID, dir, "issuer.public.jwk")
}

// Profile returns an issuer profile without keys: verifiers trust the issuer through a pinned key
func (i *Issuer) Profile() map[string]any {
	return map[string]any{
		"id":    "https://issuer.example.com/profile.json",
		"name":  "Example University",
		"image": "data:image/png;base64,aWNvbg==",
	}
}

// UnsignedCertificate returns a certificate document without a signature block
func UnsignedCertificate(id string, issuer map[string]any) ([]byte, error) {
	doc := map[string]any{
		"@context": []string{"https://w3id.org/openbadges/v2", "https://w3id.org/blockcerts/v2"},
		"type":     "Assertion",
		"id":       id,
		"badge": map[string]any{
			"id":          "urn:uuid:82a4c9f2-3588-457b-80ea-da695571b8fc",
			"name":        "Certificate of Accomplishment",
			"description": "Awarded for completing the course",
			"issuer":      issuer,
		},
		"recipientProfile": map[string]any{"name": "Eularia Landroth"},
		"issuedOn":         IssuedOn.Format(time.RFC3339),
	}
	return json.Marshal(doc)
}

// IssueMocknet signs the documents as one batch anchored on mocknet
func (i *Issuer) IssueMocknet(docs ...[]byte) ([][]byte, error) {
	batch, err := blockcerts.Issue(blockcerts.IssueRequest{
		Documents:  docs,
		PrivateKey: i.PrivateKey,
		KeyID:      i.KeyID,
		Chain:      "mocknet",
	})
	if err != nil {
		return nil, err
	}
	return batch.Documents, nil
}

// IssueOnLedger signs the documents as one bitcoin batch and returns the ledger entry of its anchor
func (i *Issuer) IssueOnLedger(transactionID string, docs ...[]byte) ([][]byte, blockcerts.LedgerEntry, error) {
	batch, err := blockcerts.Issue(blockcerts.IssueRequest{
		Documents:     docs,
		PrivateKey:    i.PrivateKey,
		KeyID:         i.KeyID,
		Chain:         "bitcoin",
		TransactionID: transactionID,
	})
	if err != nil {
		return nil, blockcerts.LedgerEntry{}, err
	}
	entry := blockcerts.LedgerEntry{Chain: "bitcoin", TransactionID: batch.TransactionID, MerkleRoot: batch.MerkleRoot}
	return batch.Documents, entry, nil
}

// SignedCertificate returns a single valid mocknet certificate with the given id
func (i *Issuer) SignedCertificate(id string) ([]byte, error) {
	doc, err := UnsignedCertificate(id, i.Profile())
	if err != nil {
		return nil, err
	}
	docs, err := i.IssueMocknet(doc)
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}
