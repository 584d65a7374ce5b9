// Package tasks implements the task domain: the persistent task model, its
// PostgreSQL store, and the authorization-gated service the API handlers
// call.
//
// Every service method takes the acting user and consults the authorization
// engine before touching the store. Reads that the actor is not allowed to
// see fail with ErrNotFound rather than ErrForbidden, so the existence of
// tasks in other organizations is never leaked. Listings are pre-filtered to
// the actor's accessible organizations in a single query.
package tasks
