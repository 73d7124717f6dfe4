// Package server provides the HTTP server of the certificate viewer.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package wires
//   - the viewer API: load, verify, verification state, cover page, run history and the event stream
//   - common infrastructure handlers (health, readiness, version, metrics, docs, issuer keys)
//
// middleware is in internal/server/middleware, handlers in internal/server/handlers
package server
