// Package middleware provides HTTP middleware for authentication and rate
// limiting.
//
// AuthMiddleware verifies bearer tokens, loads the user record, and stores
// the authenticated principal in the request context. Handlers retrieve it
// with Principal. Rate limiting comes in two flavors: an in-memory token
// bucket for single-instance deployments and a Redis-backed fixed window
// limiter shared across instances.
package middleware
