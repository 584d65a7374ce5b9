package auth

// rolePermissions is the single source of truth for what each role may do.
// The sets are listed explicitly per role; there is no inheritance between
// roles. Whoever edits this table is responsible for keeping the owner set a
// superset of the admin set if that property should continue to hold.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionTaskCreate,
		PermissionTaskRead,
		PermissionTaskUpdate,
		PermissionTaskDelete,
		PermissionUserCreate,
		PermissionUserRead,
		PermissionUserUpdate,
		PermissionUserDelete,
		PermissionOrgRead,
		PermissionOrgUpdate,
		PermissionOrgDelete,
		PermissionAuditRead,
	},
	RoleAdmin: {
		PermissionTaskCreate,
		PermissionTaskRead,
		PermissionTaskUpdate,
		PermissionTaskDelete,
		PermissionUserRead,
		PermissionUserUpdate,
		PermissionOrgRead,
		PermissionAuditRead,
	},
	RoleViewer: {
		PermissionTaskRead,
		PermissionUserRead,
		PermissionOrgRead,
	},
}

// HasPermission reports whether role holds the given permission. Unknown
// roles hold nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsFor returns a copy of the permission set for a role. Callers may
// mutate the returned slice freely.
func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
