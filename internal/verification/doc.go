// Package verification holds the state model of a certificate verification run:
// the status values, the verification steps and the ordered step queue.
//
// The queue is the single mutation point for step status. Callers that share a queue
// between goroutines must serialise access themselves (see certificate.Store).
package verification
