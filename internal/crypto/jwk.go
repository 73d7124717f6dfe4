// JWK (JSON Web Key) handling for issuer keys.
//
// Issuer keys are pinned from JWK files or fetched from the issuer's JWKS URL.
// Key ids are the first 16 hex characters of the RFC 7638 SHA-256 thumbprint.
// Reference: https://datatracker.ietf.org/doc/html/rfc7517

package crypto

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Ed25519PublicKeyToJWK converts an Ed25519 public key to a signing JWK with the given kid
func Ed25519PublicKeyToJWK(publicKey ed25519.PublicKey, keyID string) (jwk.Key, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, NewValidationError("invalid Ed25519 public key length")
	}
	return importSigningKey(publicKey, keyID)
}

// Ed25519PrivateKeyToJWK converts an Ed25519 private key to JWK format
func Ed25519PrivateKeyToJWK(privateKey ed25519.PrivateKey, keyID string) (jwk.Key, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, NewValidationError("invalid Ed25519 private key length")
	}
	return importSigningKey(privateKey, keyID)
}

func importSigningKey(raw any, keyID string) (jwk.Key, error) {
	if keyID == "" {
		return nil, NewValidationError("keyID is required")
	}

	key, err := jwk.Import(raw)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK")
	}
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key ID")
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.EdDSA()); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set algorithm")
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key usage")
	}
	return key, nil
}

// Ed25519JWKToPublicKey converts an Ed25519 JWK to an Ed25519 public key
func Ed25519JWKToPublicKey(key jwk.Key) (ed25519.PublicKey, error) {
	if key == nil {
		return nil, NewValidationError("jwk is nil")
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, WrapKeyManagementError(err, "failed to export Ed25519 public key")
	}

	pub, ok := raw.(ed25519.PublicKey)
	if !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("expected Ed25519 public key but got %T", raw))
	}
	return pub, nil
}

// KeyIDFromEd25519Key derives the kid for an Ed25519 public key from its SHA-256 thumbprint.
func KeyIDFromEd25519Key(publicKey ed25519.PublicKey) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", NewValidationError("invalid Ed25519 public key length")
	}

	key, err := jwk.Import(publicKey)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to import key")
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to generate thumbprint")
	}

	return fmt.Sprintf("%x", thumbprint)[:16], nil
}

// ParseKeySet parses either a JWKS document ({"keys": [...]}) or a single JWK into a set.
// Every key must carry a kid.
func ParseKeySet(data []byte) (jwk.Set, error) {
	set, err := jwk.Parse(data)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse JWK set")
	}
	if set.Len() == 0 {
		return nil, NewKeyManagementError("JWK set is empty")
	}

	for i := 0; i < set.Len(); i++ {
		key, _ := set.Key(i)
		if kid, ok := key.KeyID(); !ok || kid == "" {
			return nil, NewKeyManagementError(fmt.Sprintf("key %d has no kid", i))
		}
	}
	return set, nil
}
