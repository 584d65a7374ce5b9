package auth

import "time"

// Role represents the organization-level role of a user
type Role string

const (
	RoleOwner  Role = "owner"  // Global access, bypasses organization scoping
	RoleAdmin  Role = "admin"  // Own organization and descendants
	RoleViewer Role = "viewer" // Own organization only, read-only
)

// ValidRole reports whether r is one of the known role values.
// Unknown roles are denied by the authorization engine rather than treated
// as an error condition, so upstream data corruption cannot widen access.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// Permission represents a fine-grained capability tag
type Permission string

const (
	PermissionTaskCreate Permission = "task:create"
	PermissionTaskRead   Permission = "task:read"
	PermissionTaskUpdate Permission = "task:update"
	PermissionTaskDelete Permission = "task:delete"

	PermissionUserCreate Permission = "user:create"
	PermissionUserRead   Permission = "user:read"
	PermissionUserUpdate Permission = "user:update"
	PermissionUserDelete Permission = "user:delete"

	PermissionOrgRead   Permission = "org:read"
	PermissionOrgUpdate Permission = "org:update"
	PermissionOrgDelete Permission = "org:delete"

	PermissionAuditRead Permission = "audit:read"
)

// User represents an authenticated principal. A user belongs to exactly one
// organization at any time; reassignment is an administrative operation.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	OrganizationID string     `json:"organization_id"`
	Role           Role       `json:"role"`
	PasswordHash   string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// DisplayName returns the user's full name, falling back to email.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
