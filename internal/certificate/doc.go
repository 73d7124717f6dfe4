// Package certificate holds the certificate viewer state: the loaded certificate definition,
// the step queue of the current verification run and its final result.
//
// The Store is the only writer of that state. Two actions change it:
//
//   - UpdateCertificateDefinition replaces the certificate (and discards any run in progress)
//   - VerifyCertificate drives one verification run through the external Verifier
//
// Each run is tagged with a generation number. Step callbacks and the final commit of a run
// are dropped when the generation has moved on, so the state always reflects the most recently
// started run for the currently loaded certificate.
//
// Read access goes through State snapshots and the pure selector functions in selectors.go.
package certificate
