// SHA-256 hashing helpers.
//
// Hashes are exchanged as lowercase hex strings (targetHash, merkleRoot, proof siblings)
// but merkle nodes are combined over the raw digest bytes.

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Hash calculates the SHA-256 hash of data and returns it as a hex string.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewValidationError("data is empty")
	}
	hasher := sha256.New()

	if _, err := io.Copy(hasher, bytes.NewReader(data)); err != nil {
		return "", WrapInternalError(err, "failed to hash data")
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyHash reports whether data hashes to expected (hex, case insensitive).
func VerifyHash(data []byte, expected string) bool {
	h, err := Hash(data)
	if err != nil {
		return false
	}
	return h == strings.ToLower(expected)
}

// decodeHash parses a hex encoded SHA-256 digest
func decodeHash(value string) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, WrapValidationError(err, fmt.Sprintf("invalid hex digest %q", value))
	}
	if len(b) != sha256.Size {
		return nil, NewValidationError(fmt.Sprintf("digest has %d bytes, expected %d", len(b), sha256.Size))
	}
	return b, nil
}
