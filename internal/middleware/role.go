package middleware

import (
	"net/http"
	"slices"

	"groundbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleAdmin may manage bookings and rates.
const RoleAdmin = "admin"

// RequireRole lets the request through when the token's role is one of
// roles. It must run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		switch {
		case role == "":
			logAuthFailure(c, http.StatusUnauthorized, "missing_role")
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
		case !slices.Contains(roles, role):
			logAuthFailure(c, http.StatusForbidden, "role_"+role)
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
		default:
			c.Next()
		}
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}
