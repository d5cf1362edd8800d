package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"storepulse/pkg/constants"
	"storepulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware simple token authentication middleware for admin endpoints.
// The key is read from "X-API-Key" or "Authorization: Bearer <key>"; an empty apiKey disables auth.
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			logger.DebugCtx(c.Request.Context(), "API key not configured, skipping auth")
			c.Next()
			return
		}

		token := c.GetHeader(constants.HeaderAPIKey)
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader(constants.HeaderAuthorization), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
