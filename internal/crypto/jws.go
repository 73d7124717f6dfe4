package crypto

// jws.go - signing and verifying the issuer signature of a certificate batch.
//
// The issuer signs the merkle root of the batch as a JWS compact serialization.
// Only EdDSA (Ed25519) is issued by this implementation; verification accepts
// whatever algorithm the issuer key declares through the key provider.

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// JWSHeader holds the protected header fields used to select the verification key
type JWSHeader struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
}

// SignEd25519 returns a JWS compact serialization of payload signed with privateKey.
// The kid header is required: verifiers locate the issuer key by it.
func SignEd25519(payload []byte, privateKey ed25519.PrivateKey, keyID string) (string, error) {
	if keyID == "" {
		return "", NewValidationError("keyID is required")
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", NewValidationError("invalid Ed25519 private key length")
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, keyID); err != nil {
		return "", WrapInternalError(err, "failed to set kid header")
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.EdDSA(), privateKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", WrapSignatureError(err, "failed to sign payload")
	}

	return string(signed), nil
}

// VerifyEd25519 verifies a JWS compact serialization against a single public key and returns the payload
func VerifyEd25519(jwsString string, publicKey ed25519.PublicKey) ([]byte, error) {
	payload, err := jws.Verify([]byte(jwsString), jws.WithKey(jwa.EdDSA(), publicKey))
	if err != nil {
		return nil, WrapSignatureError(err, "failed to verify JWS")
	}
	return payload, nil
}

// VerifyWithKeySet verifies a JWS against the key in set whose kid matches the JWS header.
func VerifyWithKeySet(jwsString string, set jwk.Set) ([]byte, error) {
	if set == nil || set.Len() == 0 {
		return nil, NewKeyManagementError("key set is empty")
	}
	payload, err := jws.Verify([]byte(jwsString), jws.WithKeySet(set, jws.WithRequireKid(true)))
	if err != nil {
		return nil, WrapSignatureError(err, "failed to verify JWS")
	}
	return payload, nil
}

// VerifyWithKeyProvider verifies a JWS using keys supplied by provider (typically a key manager
// that resolves the kid against cached issuer key sets).
func VerifyWithKeyProvider(ctx context.Context, jwsString string, provider jws.KeyProvider) ([]byte, error) {
	if provider == nil {
		return nil, NewKeyManagementError("key provider is nil")
	}
	payload, err := jws.Verify([]byte(jwsString), jws.WithContext(ctx), jws.WithKeyProvider(provider))
	if err != nil {
		return nil, WrapSignatureError(err, "failed to verify JWS")
	}
	return payload, nil
}

// ParseHeader extracts the protected header of a compact JWS without verifying it.
func ParseHeader(jwsString string) (JWSHeader, error) {
	msg, err := jws.Parse([]byte(jwsString))
	if err != nil {
		return JWSHeader{}, WrapValidationError(err, "invalid JWS format")
	}

	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return JWSHeader{}, NewValidationError(fmt.Sprintf("expected exactly one signature, got %d", len(sigs)))
	}

	protected := sigs[0].ProtectedHeaders()
	alg, ok := protected.Algorithm()
	if !ok {
		return JWSHeader{}, NewValidationError("missing required field: alg")
	}
	kid, ok := protected.KeyID()
	if !ok || kid == "" {
		return JWSHeader{}, NewValidationError("missing required field: kid")
	}

	return JWSHeader{Algorithm: alg.String(), KeyID: kid}, nil
}
