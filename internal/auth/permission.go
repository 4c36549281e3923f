// AngelaMos | 2026
// permission.go

package auth

import (
	"slices"

	"github.com/nexxstore/storefront/internal/user"
)

const (
	PermDashboardView   = "dashboard.view"
	PermUsersView       = "users.view"
	PermUsersManage     = "users.manage"
	PermProductsView    = "products.view"
	PermProductsManage  = "products.manage"
	PermOrdersView      = "orders.view"
	PermOrdersManage    = "orders.manage"
	PermSuppliersManage = "suppliers.manage"
	PermPaymentsManage  = "payments.manage"
	PermDeliveryManage  = "delivery.manage"
	PermStaffManage     = "staff.manage"
	PermPagesManage     = "pages.manage"
	PermSettingsManage  = "settings.manage"
	PermAnalyticsView   = "analytics.view"
	PermReportsView     = "reports.view"
)

var roleCatalog = map[user.Role][]string{
	user.RoleAdmin: {
		PermDashboardView, PermUsersManage, PermProductsManage, PermOrdersManage,
		PermSuppliersManage, PermPaymentsManage, PermDeliveryManage,
		PermStaffManage, PermSettingsManage, PermPagesManage,
		PermAnalyticsView, PermReportsView,
	},
	user.RoleManager: {
		PermDashboardView, PermUsersView, PermProductsView, PermOrdersManage,
		PermAnalyticsView,
	},
	user.RoleModerator: {
		PermDashboardView, PermProductsManage, PermPagesManage,
	},
	user.RoleAccountant: {
		PermDashboardView, PermOrdersView, PermAnalyticsView, PermReportsView,
	},
	user.RoleUser: {
		user.PermProfileView, user.PermOrdersView, user.PermCartManage,
	},
}

// AdminRoles are the staff roles that see the admin entry point.
var AdminRoles = []user.Role{
	user.RoleAdmin,
	user.RoleManager,
	user.RoleModerator,
	user.RoleAccountant,
}

// Section is one admin panel area, shown when any of its permissions holds.
type Section struct {
	Key         string
	Permissions []string
}

var Sections = []Section{
	{"dashboard", []string{PermDashboardView}},
	{"users", []string{PermUsersManage, PermUsersView}},
	{"products", []string{PermProductsManage}},
	{"orders", []string{PermOrdersManage, PermOrdersView}},
	{"suppliers", []string{PermSuppliersManage}},
	{"payments", []string{PermPaymentsManage}},
	{"delivery", []string{PermDeliveryManage}},
	{"staff", []string{PermStaffManage}},
	{"pages", []string{PermPagesManage}},
	{"settings", []string{PermSettingsManage}},
	{"analytics", []string{PermAnalyticsView}},
}

// Allows is the single permission rule: admins hold every capability,
// everyone else holds exactly what they were granted.
func Allows(role user.Role, granted user.Permissions, capability string) bool {
	if role == user.RoleAdmin {
		return true
	}
	return granted.Has(capability)
}

// PermissionsFor returns the default capability set for a role.
func PermissionsFor(role user.Role) user.Permissions {
	return slices.Clone(roleCatalog[role])
}

func CanAccessAdmin(role user.Role) bool {
	return slices.Contains(AdminRoles, role)
}

// VisibleSections lists the admin sections the caller may open, in
// navigation order.
func VisibleSections(role user.Role, granted user.Permissions) []string {
	if !CanAccessAdmin(role) {
		return nil
	}

	var keys []string
	for _, s := range Sections {
		if slices.ContainsFunc(s.Permissions, func(p string) bool {
			return Allows(role, granted, p)
		}) {
			keys = append(keys, s.Key)
		}
	}
	return keys
}
