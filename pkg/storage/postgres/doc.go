// Package postgres owns the database connection and schema for TaskHub.
//
// Open configures the connection pool and verifies connectivity; Migrate
// applies the idempotent schema (organizations, users, tasks). The audit
// table is managed by the audit package because audit sinks can run against
// a separate database.
package postgres
