// Package blockcerts provides the default certificate verifier.
//
// A Blockcerts certificate is a JSON document whose signature block proves that
//   - the document hashes to the targetHash (RFC 8785 canonical form, signature block removed)
//   - the targetHash is a leaf of a merkle tree whose root is anchored in a blockchain transaction
//   - the issuer signed the merkle root with one of the keys published in its profile
//
// The Verifier runs these checks as an ordered plan of grouped steps and reports each transition
// through the step callback supplied by the certificate store.
//
// Anchors are resolved through a TransactionLookup. MockChain serves the "mocknet" chain used for
// test certificates; StaticLedger serves anchors recorded ahead of time (e.g. from a YAML file).
// Issuer keys are resolved by an IssuerKeyManager, which caches remote JWKS documents.
package blockcerts
