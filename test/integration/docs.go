// Package integration contains end-to-end tests for the certificate viewer server.
//
// The server is started in-process against a temporary PostgreSQL database (verification history)
// and certificates are loaded, verified and summarised over HTTP.
//
// These tests assume the crypto, blockcerts and certificate packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
