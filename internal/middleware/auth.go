package middleware

import (
	"net/http"
	"strings"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// RequireAuth validates the Bearer token and attaches the caller identity to
// the request context.
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.AbortFail(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := auth.ValidateToken(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireWSAuth authenticates WebSocket upgrade requests. Browsers cannot
// set headers on WS handshakes, so the token travels as a query parameter.
func RequireWSAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := auth.ValidateToken(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireTeacher gates a route to teacher callers. Must run after RequireAuth.
func RequireTeacher() gin.HandlerFunc {
	return requireRole(model.RoleTeacher)
}

// RequireStudent gates a route to student callers. Must run after RequireAuth.
func RequireStudent() gin.HandlerFunc {
	return requireRole(model.RoleStudent)
}

func requireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok || identity.Role != role {
			response.AbortFail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the authenticated caller set by RequireAuth.
func GetIdentity(c *gin.Context) (*model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*model.Identity)
	return identity, ok
}
