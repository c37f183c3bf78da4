package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortErr(c, apperr.Unauthenticated(notAuthorized))
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		abortErr(c, apperr.Forbidden("User role %s is not authorized to access this route", role))
	}
}
