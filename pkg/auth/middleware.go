package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roomops/pms-console/internal/adapter/api/dto"
	"github.com/roomops/pms-console/pkg/conversation"
)

// JWTAuthMiddleware validates the Bearer token and stores the staff
// member's identity in the gin context and the request context.
func JWTAuthMiddleware() gin.HandlerFunc {
	jwtService, err := NewJWTService()
	if err != nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
				http.StatusInternalServerError,
				"Authentication is not configured",
				"The JWT service could not be initialized",
			))
		}
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				"Authentication required",
				"The Authorization header was not provided",
			))
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				"Invalid token format",
				"Use the format 'Bearer <token>'",
			))
			return
		}

		claims, err := jwtService.ValidateToken(tokenParts[1])
		if err != nil {
			message := "Invalid token"
			if err == ErrExpiredToken {
				message = "Expired token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				message,
				err.Error(),
			))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("user_name", claims.Name)
		c.Set("user_role", claims.Role)

		c.Request = c.Request.WithContext(
			conversation.WithActor(c.Request.Context(), claims.TenantID, claims.UserID))

		c.Next()
	}
}

// RoleAuthMiddleware restricts a route to the given roles.
func RoleAuthMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("user_role")
		if userRole == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				"Authentication required",
				"",
			))
			return
		}

		for _, r := range roles {
			if userRole == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
			http.StatusForbidden,
			"Access denied",
			"You do not have permission to access this resource",
		))
	}
}
