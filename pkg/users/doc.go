// Package users provides persistence for user accounts.
//
// The principal model itself lives in pkg/auth; this package only stores and
// loads it. Users are soft-deleted via IsActive=false and a deactivated user
// fails authentication on the next request, since the auth middleware reloads
// the principal from this store per request.
package users
