// Package api exposes the TaskHub HTTP surface: login and principal
// introspection, task CRUD, organization directory queries, administrative
// organization/user management, and audit log search.
//
// All routes except login require a bearer token. Handlers declare the
// permission they need statically and delegate the decision to the
// authorization engine; denials surface as a generic 403 (or 404 where
// revealing existence would leak data), never the denial reason.
package api
