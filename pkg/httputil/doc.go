// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, request parsing, and cross-cutting
// middleware (request ids, logging, panic recovery, CORS).
package httputil
