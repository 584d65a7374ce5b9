package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		perm     Permission
		expected bool
	}{
		{name: "owner can create tasks", role: RoleOwner, perm: PermissionTaskCreate, expected: true},
		{name: "owner can read audit log", role: RoleOwner, perm: PermissionAuditRead, expected: true},
		{name: "owner can delete orgs", role: RoleOwner, perm: PermissionOrgDelete, expected: true},
		{name: "admin can update tasks", role: RoleAdmin, perm: PermissionTaskUpdate, expected: true},
		{name: "admin can read audit log", role: RoleAdmin, perm: PermissionAuditRead, expected: true},
		{name: "admin cannot delete orgs", role: RoleAdmin, perm: PermissionOrgDelete, expected: false},
		{name: "admin cannot create users", role: RoleAdmin, perm: PermissionUserCreate, expected: false},
		{name: "viewer can read tasks", role: RoleViewer, perm: PermissionTaskRead, expected: true},
		{name: "viewer cannot create tasks", role: RoleViewer, perm: PermissionTaskCreate, expected: false},
		{name: "viewer cannot update tasks", role: RoleViewer, perm: PermissionTaskUpdate, expected: false},
		{name: "viewer cannot delete tasks", role: RoleViewer, perm: PermissionTaskDelete, expected: false},
		{name: "viewer cannot read audit log", role: RoleViewer, perm: PermissionAuditRead, expected: false},
		{name: "unknown role holds nothing", role: Role("superuser"), perm: PermissionTaskRead, expected: false},
		{name: "empty role holds nothing", role: Role(""), perm: PermissionTaskRead, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasPermission(tt.role, tt.perm))
		})
	}
}

func TestOwnerSupersetOfAdmin(t *testing.T) {
	// Data fact the table maintainers promise to keep; catch regressions.
	for _, p := range PermissionsFor(RoleAdmin) {
		assert.True(t, HasPermission(RoleOwner, p), "owner missing admin permission %s", p)
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleOwner))
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleViewer))
	assert.False(t, ValidRole(Role("member")))
	assert.False(t, ValidRole(Role("")))
	assert.False(t, ValidRole(Role("OWNER"))) // roles are lowercase on the wire
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleViewer)
	if len(perms) == 0 {
		t.Fatal("expected viewer to hold at least one permission")
	}
	perms[0] = Permission("mutated")
	assert.NotContains(t, PermissionsFor(RoleViewer), Permission("mutated"))
}
