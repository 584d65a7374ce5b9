// Package auth defines the authenticated principal model and the static
// role-to-permission table for TaskHub.
//
// # Roles and Permissions
//
// Every user holds exactly one role within exactly one organization:
//
//	RoleOwner  - global access across the whole organization tree
//	RoleAdmin  - access to their own organization and its descendants
//	RoleViewer - read-only access to their own organization
//
// Permissions are fine-grained capability tags gating one operation kind
// (e.g. "task:create"). The mapping from role to permission set is a fixed
// table, not a derivation rule: RoleOwner's set happens to be a superset of
// RoleAdmin's, but nothing in the code assumes an ordering between roles.
// Edit RolePermissions in permissions.go to change what a role can do.
//
//	if auth.HasPermission(user.Role, auth.PermissionTaskCreate) {
//		// role holds the capability; scope is checked separately by pkg/authz
//	}
//
// # Tokens
//
// TokenManager issues and verifies the HMAC-signed JWTs carried on API
// requests. Verification yields only the user id; the middleware reloads the
// full principal from the user store on every request so that deactivations
// and role changes take effect immediately, and so that no authorization
// decision ever depends on stale claims baked into a token.
//
// # Related Packages
//
//   - pkg/authz: combines this package's permission table with the
//     organization hierarchy to produce allow/deny decisions
//   - pkg/users: persistence for User records
//   - pkg/middleware: extracts the bearer token and attaches the principal
//     to the request context
package auth
