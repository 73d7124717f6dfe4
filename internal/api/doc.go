// Package api holds the error codes and response helpers shared by the HTTP handlers and middleware.
//
// Every failed request gets the same JSON error body (see ErrorResponse). Lower level errors from the
// verification, blockcerts and crypto packages are mapped to a status code and a sanitised error code text;
// the full error is only logged server side.
package api
