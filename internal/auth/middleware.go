package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the middleware stores the caller's identity.
const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
)

// TokenValidator decouples the middleware from the auth service.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, string, error)
}

// Middleware validates the bearer token (header first, query param as a
// fallback for websocket upgrades) and injects the caller's identity.
func Middleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			return
		}

		userID, name, err := validator.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserName, name)
		c.Next()
	}
}

// CallerID reads the authenticated user id injected by the middleware.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
