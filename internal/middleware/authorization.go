package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// HasAnyRole reports whether the request context carries at least one of the
// named roles. This is the single capability check the transport layer runs
// before delegating to the core.
func HasAnyRole(ctx context.Context, allowedRoles ...string) bool {
	roles, ok := GetUserRoles(ctx)
	if !ok {
		return false
	}
	for _, role := range roles {
		for _, allowed := range allowedRoles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

// RequireAnyRole middleware ensures the user holds one of the specified roles
func RequireAnyRole(logger *zap.Logger, allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUserRoles(r.Context()); !ok {
				logger.Warn("Roles not found in context")
				RespondWithError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !HasAnyRole(r.Context(), allowedRoles...) {
				logger.Warn("User roles not authorized",
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
