// AngelaMos | 2026
// permission_test.go

package auth

import (
	"slices"
	"testing"

	"github.com/nexxstore/storefront/internal/user"
)

func TestAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		role       user.Role
		granted    user.Permissions
		capability string
		want       bool
	}{
		{"admin without grants", user.RoleAdmin, nil, PermStaffManage, true},
		{"admin unknown capability", user.RoleAdmin, nil, "rockets.launch", true},
		{"user granted", user.RoleUser, user.DefaultPermissions(), user.PermCartManage, true},
		{"user not granted", user.RoleUser, user.DefaultPermissions(), PermDashboardView, false},
		{"manager role alone is not enough", user.RoleManager, nil, PermOrdersManage, false},
		{"manager granted", user.RoleManager, PermissionsFor(user.RoleManager), PermOrdersManage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allows(tt.role, tt.granted, tt.capability); got != tt.want {
				t.Errorf("Allows(%s, %v, %q) = %v, want %v",
					tt.role, tt.granted, tt.capability, got, tt.want)
			}
		})
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	t.Parallel()

	p := PermissionsFor(user.RoleModerator)
	p[0] = "tampered"

	if PermissionsFor(user.RoleModerator)[0] != PermDashboardView {
		t.Error("PermissionsFor exposed the catalog slice")
	}
	if got := PermissionsFor("ghost"); len(got) != 0 {
		t.Errorf("unknown role: got %v, want none", got)
	}
	if !slices.Equal(PermissionsFor(user.RoleUser), user.DefaultPermissions()) {
		t.Errorf("user catalog %v differs from registration defaults %v",
			PermissionsFor(user.RoleUser), user.DefaultPermissions())
	}
}

func TestVisibleSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role user.Role
		want []string
	}{
		{user.RoleAdmin, []string{
			"dashboard", "users", "products", "orders", "suppliers", "payments",
			"delivery", "staff", "pages", "settings", "analytics",
		}},
		{user.RoleManager, []string{"dashboard", "users", "orders", "analytics"}},
		{user.RoleModerator, []string{"dashboard", "products", "pages"}},
		{user.RoleAccountant, []string{"dashboard", "orders", "analytics"}},
		{user.RoleUser, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := VisibleSections(tt.role, PermissionsFor(tt.role))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessAdmin(t *testing.T) {
	t.Parallel()

	for _, role := range []user.Role{user.RoleAdmin, user.RoleManager, user.RoleModerator, user.RoleAccountant} {
		if !CanAccessAdmin(role) {
			t.Errorf("CanAccessAdmin(%s) = false", role)
		}
	}
	if CanAccessAdmin(user.RoleUser) {
		t.Error("CanAccessAdmin(user) = true")
	}
}
