// certificates are canonicalized per RFC 8785 before hashing so that key order and whitespace
// in the issued document do not affect the target hash.
// this implementation uses the gowebpki/jcs library to perform this canonicalization
package crypto

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	out, err := jcs.Transform(jsonData)
	if err != nil {
		return nil, WrapValidationError(err, "failed to canonicalize JSON")
	}
	return out, nil
}

// CanonicalizeWithout removes the named top level members from a JSON object and returns
// the canonical form of what is left.
//
// This is how the certificate payload is separated from its signature block before hashing.
func CanonicalizeWithout(jsonData []byte, exclude ...string) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, WrapValidationError(err, "document is not a JSON object")
	}
	for _, key := range exclude {
		delete(doc, key)
	}

	stripped, err := json.Marshal(doc)
	if err != nil {
		return nil, WrapInternalError(err, "failed to re-encode document")
	}
	return CanonicalizeJSON(stripped)
}
