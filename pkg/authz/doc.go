// Package authz implements the access decision engine for TaskHub.
//
// # Overview
//
// Given an authenticated principal, a target resource, and an intended
// operation, the engine returns a structured allow/deny decision. It is the
// single authorization entry point: resource services must consult it before
// any task mutation or restricted read.
//
//	engine := authz.NewEngine(directory, metrics)
//	decision, err := engine.Authorize(ctx, user, authz.Resource{
//		Type:           authz.ResourceTypeTask,
//		ID:             task.ID,
//		OrganizationID: task.OrganizationID,
//		CreatedByID:    task.CreatedByID,
//	}, authz.OperationUpdate)
//	if err != nil {
//		// hierarchy lookup fault: fail closed, surface as forbidden
//	}
//	if !decision.Allowed {
//		// decision.Kind says which check failed; log it, never expose it
//	}
//
// # Decision layering
//
// Checks run in a fixed order and short-circuit on the first deny:
//
//  1. Authentication - a nil or deactivated principal is DenyNotAuthenticated.
//  2. Role validity  - an unrecognized role value is DenyInvalidRole. The
//     engine denies rather than erroring so corrupt upstream data can never
//     widen access.
//  3. Permission     - the role must hold the permission the operation maps
//     to (see pkg/auth). Failure is DenyPermission.
//  4. Scope          - role-dependent. Owners pass unconditionally. Admins
//     pass when the resource's organization is their own organization or one
//     of its descendants per pkg/orgs (never an ancestor or sibling).
//     Viewers pass only on exact organization equality. Failure is DenyScope.
//  5. Ownership      - for task update/delete only. Owners and in-scope
//     admins skip it; any other role that somehow holds the permission must
//     also be the task's creator. With the current three roles this branch
//     is unreachable (viewers fail the permission check first), but the
//     check is generic so a future role tier with update permission and no
//     org-wide scope gets the creator-only fallback automatically.
//
// # Failure policy
//
// The engine is a pure function of its inputs: no state, no side effects
// beyond a metrics counter, identical inputs produce identical decisions,
// and it is safe to call from any number of goroutines. Denies are values,
// never errors. Only hierarchy-store faults surface as errors, and callers
// must treat those as a deny (fail closed).
//
// Callers translate DenyNotAuthenticated to an authentication-required
// response and every other kind to a generic forbidden response; the precise
// kind is for logs and the audit trail only, so organizational structure is
// not revealed to unauthorized callers.
package authz
