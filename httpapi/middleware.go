package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestLogger emits one structured log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("Request handled")
	}
}

// apiKeyAuth rejects requests that do not carry the configured key in
// the X-API-Key header or the api_key query parameter. When no key is
// configured every request passes; a warning is logged once at setup.
func apiKeyAuth(key string) gin.HandlerFunc {
	if key == "" {
		logrus.Warn("API key not configured, requests are unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if got == "" {
			got = c.Query("api_key")
		}
		if got != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key"})
			return
		}
		c.Next()
	}
}

// rateLimit applies a per-client-IP token bucket. A nil limiter is a
// pass-through.
func rateLimit(l *keyLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
