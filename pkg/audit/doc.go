// Package audit records security-relevant events: authentication attempts,
// authorization decisions, and task/organization/user mutations.
//
// Every role-gated action in TaskHub produces an audit event. The engine in
// pkg/authz does not log its own decisions; the calling service does, which
// keeps the decision function pure and lets the caller attach request
// context (ip, user agent, request id).
//
// # Loggers
//
// The Logger interface has three implementations:
//
//   - DBLogger writes to the audit_logs table in PostgreSQL and backs the
//     /audit-log API listing.
//   - FileLogger writes newline-delimited JSON with size-based rotation, for
//     shipping to an external pipeline.
//   - MultiLogger fans out to several loggers, optionally asynchronously.
//
// NopLogger discards everything and is for tests and disabled configs.
//
// # Retention
//
// Audit rows are never deleted by application logic except through the
// retention job, which runs on a cron schedule and purges rows older than
// the configured number of days.
package audit
