package middleware

import (
	"strings"

	"github.com/shoe-uugan/ai-chat/pkg/errors"
	"github.com/shoe-uugan/ai-chat/pkg/jwt"
	"github.com/shoe-uugan/ai-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		// Strip "Bearer " prefix if present
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid JWT token", "error", err.Error())
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("userId", claims.UserID)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

// RequireRole returns a middleware that requires the user to have a specific role
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		jwtClaims, ok := claims.(*jwt.JWTClaims)
		if !ok {
			c.Error(errors.NewInternalServerError("INVALID_CLAIMS", "Invalid JWT claims format"))
			c.Abort()
			return
		}

		if !jwtClaims.HasRole(role) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}
