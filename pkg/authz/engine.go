package authz

import (
	"context"
	"fmt"

	"github.com/turbovets/taskhub/pkg/auth"
)

// HierarchyResolver is the slice of the organization directory the engine
// depends on. *orgs.Directory satisfies it.
type HierarchyResolver interface {
	Descendants(ctx context.Context, orgID string) (map[string]struct{}, error)
	ActiveIDs(ctx context.Context) (map[string]struct{}, error)
}

// Engine evaluates authorization decisions. Stateless and safe for
// concurrent use; hierarchy lookups go through the resolver per call.
type Engine struct {
	hierarchy HierarchyResolver
	metrics   *Metrics
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(hierarchy HierarchyResolver, metrics *Metrics) *Engine {
	return &Engine{hierarchy: hierarchy, metrics: metrics}
}

// Authorize decides whether user may perform op on resource. Denies are
// returned as values; a non-nil error means a hierarchy lookup failed and
// the caller must fail closed (the returned decision is already a deny).
func (e *Engine) Authorize(ctx context.Context, user *auth.User, resource Resource, op Operation) (Decision, error) {
	decision, err := e.evaluate(ctx, user, resource, op)
	e.observe(resource.Type, op, decision, err)
	return decision, err
}

func (e *Engine) evaluate(ctx context.Context, user *auth.User, resource Resource, op Operation) (Decision, error) {
	if user == nil {
		return deny(DenyNotAuthenticated, "not authenticated"), nil
	}
	if !user.IsActive {
		return deny(DenyNotAuthenticated, "user is deactivated"), nil
	}

	if !auth.ValidRole(user.Role) {
		return deny(DenyInvalidRole, fmt.Sprintf("unknown role %q", user.Role)), nil
	}

	perm, defined := PermissionFor(resource.Type, op)
	if !defined {
		return deny(DenyPermission, fmt.Sprintf("no permission defined for %s %s", op, resource.Type)), nil
	}
	if !auth.HasPermission(user.Role, perm) {
		return deny(DenyPermission, fmt.Sprintf("role %s lacks %s", user.Role, perm)), nil
	}

	inScope, err := e.scopeCheck(ctx, user, resource)
	if err != nil {
		// Broken hierarchy lookup: deny, and let the caller see the fault.
		return deny(DenyScope, "hierarchy lookup failed"), err
	}
	if !inScope {
		return deny(DenyScope, "resource organization outside accessible hierarchy"), nil
	}

	if !e.ownershipCheck(user, resource, op) {
		return deny(DenyOwnership, "not the creator of this resource"), nil
	}

	return allow(), nil
}

// scopeCheck applies the role-dependent organizational reach test.
func (e *Engine) scopeCheck(ctx context.Context, user *auth.User, resource Resource) (bool, error) {
	switch user.Role {
	case auth.RoleOwner:
		// Owners bypass organization scoping entirely, for every operation.
		return true, nil
	case auth.RoleAdmin:
		// Own organization or any descendant; never ancestors or siblings.
		descendants, err := e.hierarchy.Descendants(ctx, user.OrganizationID)
		if err != nil {
			return false, fmt.Errorf("descendant lookup for %s: %w", user.OrganizationID, err)
		}
		_, ok := descendants[resource.OrganizationID]
		return ok, nil
	default:
		return resource.OrganizationID == user.OrganizationID, nil
	}
}

// ownershipCheck gates task mutation by creatorship for roles without
// org-wide rights. Owners always pass; admins pass because their scope check
// already granted subtree-wide rights.
func (e *Engine) ownershipCheck(user *auth.User, resource Resource, op Operation) bool {
	if resource.Type != ResourceTypeTask {
		return true
	}
	if op != OperationUpdate && op != OperationDelete {
		return true
	}
	if user.Role == auth.RoleOwner || user.Role == auth.RoleAdmin {
		return true
	}
	return resource.CreatedByID != "" && resource.CreatedByID == user.ID
}

// AccessibleOrganizationIDs returns the set of organization ids whose
// resources the user may see. Used to pre-filter listings in one query
// instead of per-item hierarchy round trips.
func (e *Engine) AccessibleOrganizationIDs(ctx context.Context, user *auth.User) (map[string]struct{}, error) {
	if user == nil || !user.IsActive || !auth.ValidRole(user.Role) {
		return map[string]struct{}{}, nil
	}

	switch user.Role {
	case auth.RoleOwner:
		ids, err := e.hierarchy.ActiveIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("active organization lookup: %w", err)
		}
		return ids, nil
	case auth.RoleAdmin:
		ids, err := e.hierarchy.Descendants(ctx, user.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("descendant lookup for %s: %w", user.OrganizationID, err)
		}
		return ids, nil
	default:
		return map[string]struct{}{user.OrganizationID: {}}, nil
	}
}

func (e *Engine) observe(resourceType ResourceType, op Operation, decision Decision, err error) {
	if e.metrics == nil {
		return
	}
	result := "allowed"
	switch {
	case err != nil:
		result = "error"
	case !decision.Allowed:
		result = string(decision.Kind)
	}
	e.metrics.Decisions.WithLabelValues(string(resourceType), string(op), result).Inc()
}
