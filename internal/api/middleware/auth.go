package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// AuthMiddleware validates HMAC-signed JWT bearer tokens and stores the
// user_id and username claims in the context
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.SendError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			utils.SendError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenParts[1], claims, keyFunc)
		if err != nil || !token.Valid {
			utils.SendError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(ContextUserID, claims["user_id"])
		if username, ok := claims["username"].(string); ok {
			c.Set(ContextUsername, username)
		}

		c.Next()
	}
}

// OptionalAuth applies AuthMiddleware only when enabled
func OptionalAuth(enabled bool, jwtSecret string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return AuthMiddleware(jwtSecret)
}

// Username returns the authenticated username, or "" for anonymous requests
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
