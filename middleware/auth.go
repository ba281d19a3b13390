package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "grocery-service/common/errors"
	"grocery-service/models"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
)

// IdentityMiddleware resolves the caller identity from the X-User-ID and
// X-User-Role headers set by the gateway. Requests without an identity are
// rejected before any handler runs.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")

		// Cookie fallback (only if behind api-gateway, never publicly exposed)
		if userID == "" {
			if v, err := c.Cookie("user_id"); err == nil {
				userID = v
			}
		}
		if role == "" {
			if v, err := c.Cookie("user_role"); err == nil {
				role = v
			}
		}

		if userID == "" {
			apperrors.Respond(c, apperrors.Unauthorized("missing identity context"))
			return
		}
		if role == "" {
			role = models.RoleUser
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// AdminOnly rejects callers whose resolved role is not admin.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(RoleContextKey)
		if !exists || role != models.RoleAdmin {
			apperrors.Respond(c, apperrors.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

// GetIdentity reads the identity resolved by IdentityMiddleware. The zero
// value means no identity was attached.
func GetIdentity(c *gin.Context) models.Identity {
	var identity models.Identity
	if v, ok := c.Get(UserContextKey); ok {
		if id, ok := v.(string); ok {
			identity.ID = id
		}
	}
	if v, ok := c.Get(RoleContextKey); ok {
		if role, ok := v.(string); ok {
			identity.Role = role
		}
	}
	return identity
}
