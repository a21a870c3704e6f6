// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request middleware.
//
// Error responses follow a single shape, {"error": "..."}, matching what
// the Hub expects from the login endpoint.
package httputil
