// this file contains functions to generate and store issuer signing keys
//
// keys are saved as JWK sets so the public file can be published unchanged as the issuer's JWKS.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// GenerateEd25519KeyPair generates a new ED25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate key pair")
	}
	return privateKey, nil
}

// SaveEd25519PrivateKeyToJWKFile saves an ED25519 private key to a JWK set file
// note the key is not encrypted
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "issuer.private.jwks")
func SaveEd25519PrivateKeyToJWKFile(privateKey ed25519.PrivateKey, keyID, baseDir, filename string) error {
	key, err := Ed25519PrivateKeyToJWK(privateKey, keyID)
	if err != nil {
		return err
	}
	return writeKeySet(key, baseDir, filename, 0600)
}

// SaveEd25519PublicKeyToJWKFile saves an ED25519 public key to a JWK set file
func SaveEd25519PublicKeyToJWKFile(publicKey ed25519.PublicKey, keyID, baseDir, filename string) error {
	key, err := Ed25519PublicKeyToJWK(publicKey, keyID)
	if err != nil {
		return err
	}
	return writeKeySet(key, baseDir, filename, 0644)
}

func writeKeySet(key jwk.Key, baseDir, filename string, perm os.FileMode) error {
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return WrapKeyManagementError(err, "failed to add key to set")
	}

	jsonBytes, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return WrapInternalError(err, "failed to marshal JWK set")
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return WrapKeyManagementError(err, "failed to open key directory "+baseDir)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, perm); err != nil {
		return WrapKeyManagementError(err, "failed to write key file")
	}
	return nil
}

// ReadEd25519PrivateKeyFromJWKFile loads an ed25519 private key and its kid from a JWK set file
func ReadEd25519PrivateKeyFromJWKFile(baseDir, filename string) (ed25519.PrivateKey, string, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, "", WrapKeyManagementError(err, "failed to open key directory "+baseDir)
	}
	defer root.Close()

	jsonBytes, err := root.ReadFile(filename)
	if err != nil {
		return nil, "", WrapKeyManagementError(err, "failed to read key file")
	}

	set, err := ParseKeySet(jsonBytes)
	if err != nil {
		return nil, "", err
	}

	key, _ := set.Key(0)
	kid, _ := key.KeyID()

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, "", WrapKeyManagementError(err, "failed to export key")
	}

	privateKey, ok := raw.(ed25519.PrivateKey)
	if !ok {
		return nil, "", NewKeyManagementError("key is not an Ed25519 private key")
	}
	return privateKey, kid, nil
}
