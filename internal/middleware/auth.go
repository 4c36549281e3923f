// AngelaMos | 2026
// auth.go

package middleware

import (
	"net/http"

	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/user"
)

// SessionReader is the read side of the process session.
type SessionReader interface {
	IsAuthenticated() bool
	HasPermission(capability string) bool
	HasRole(role user.Role) bool
}

// RequirePermission passes when the session holds any of capabilities.
func RequirePermission(
	s SessionReader,
	capabilities ...string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.IsAuthenticated() {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}

			for _, c := range capabilities {
				if s.HasPermission(c) {
					next.ServeHTTP(w, r)
					return
				}
			}

			core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		})
	}
}

func RequireRole(
	s SessionReader,
	roles ...user.Role,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.IsAuthenticated() {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}

			for _, role := range roles {
				if s.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		})
	}
}

func RequireAdmin(s SessionReader) func(http.Handler) http.Handler {
	return RequireRole(s, user.RoleAdmin)
}
