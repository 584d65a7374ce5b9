package authz

import (
	"github.com/turbovets/taskhub/pkg/auth"
)

// Operation represents the intent of a request against a resource.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ResourceType identifies what kind of entity a decision is about.
type ResourceType string

const (
	ResourceTypeTask         ResourceType = "task"
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeAuditLog     ResourceType = "audit_log"
)

// Resource carries the authorization-relevant attributes of a target entity.
type Resource struct {
	Type           ResourceType
	ID             string
	OrganizationID string
	// CreatedByID is the creating user, used by the ownership check on task
	// update/delete. Empty for resource types without a creator.
	CreatedByID string
}

// DenyKind classifies why a decision denied. The kind is internal: callers
// log it but surface only a generic forbidden (or authentication-required)
// response.
type DenyKind string

const (
	DenyNotAuthenticated DenyKind = "not_authenticated"
	DenyInvalidRole      DenyKind = "invalid_role"
	DenyPermission       DenyKind = "permission_denied"
	DenyScope            DenyKind = "scope_denied"
	DenyOwnership        DenyKind = "ownership_denied"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Kind    DenyKind `json:"kind,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(kind DenyKind, reason string) Decision {
	return Decision{Allowed: false, Kind: kind, Reason: reason}
}

// permissionTable maps (resource type, operation) to the permission a role
// must hold. Static by design: routes declare what they need, nothing is
// resolved at runtime from handler metadata.
var permissionTable = map[ResourceType]map[Operation]auth.Permission{
	ResourceTypeTask: {
		OperationCreate: auth.PermissionTaskCreate,
		OperationRead:   auth.PermissionTaskRead,
		OperationUpdate: auth.PermissionTaskUpdate,
		OperationDelete: auth.PermissionTaskDelete,
	},
	ResourceTypeUser: {
		OperationCreate: auth.PermissionUserCreate,
		OperationRead:   auth.PermissionUserRead,
		OperationUpdate: auth.PermissionUserUpdate,
		OperationDelete: auth.PermissionUserDelete,
	},
	ResourceTypeOrganization: {
		OperationRead:   auth.PermissionOrgRead,
		OperationUpdate: auth.PermissionOrgUpdate,
		OperationDelete: auth.PermissionOrgDelete,
	},
	ResourceTypeAuditLog: {
		OperationRead: auth.PermissionAuditRead,
	},
}

// PermissionFor returns the permission required to perform op on a resource
// of the given type, and whether the combination is defined at all.
func PermissionFor(resourceType ResourceType, op Operation) (auth.Permission, bool) {
	ops, ok := permissionTable[resourceType]
	if !ok {
		return "", false
	}
	perm, ok := ops[op]
	return perm, ok
}
