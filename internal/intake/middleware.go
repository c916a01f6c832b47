package intake

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BasicAuth guards the inbound webhook. Missing credentials in config are a
// deployment mistake and reject every request rather than letting the
// endpoint run open.
func BasicAuth(username, password string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username == "" || password == "" {
			logger.Error("Inbound auth not configured, rejecting request")
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "Auth not configured"})
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="invoice-ingest"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}

// RateLimit applies a process-wide token bucket to the inbound endpoint.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs each request with timing.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
