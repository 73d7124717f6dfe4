// Package handlers provides the HTTP handlers of the viewer service.
//
// certificate.go and events.go serve the viewer API (load, verify, verification state, cover page, the
// lifecycle event stream). The remaining files are infrastructure handlers (health, version, docs, issuer keys).
//
// Handlers are constructed as closures over their dependencies and are registered in internal/server.
package handlers
