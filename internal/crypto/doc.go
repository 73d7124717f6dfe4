// crypto package provides the low level primitives used to verify a Blockcerts certificate:
// RFC 8785 canonical hashing, merkle proof evaluation, and issuer JWS/JWK handling.
//
// These functions carry no verification policy. See the blockcerts package for the step-by-step verifier.
package crypto
