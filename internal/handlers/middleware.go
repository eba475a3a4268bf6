package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates a bearer token and stores the subject user id in
// the request context.
func (handlers *Handlers) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		userID, err := handlers.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// RequestLogging records every completed request.
func (handlers *Handlers) RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		handlers.logger.LogRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(startTime))
	}
}

// Recovery converts panics into a structured 500 body; callers never see a
// stack trace.
func (handlers *Handlers) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				handlers.logger.Error("Request handler panicked",
					"path", c.FullPath(),
					"panic", recovered)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
