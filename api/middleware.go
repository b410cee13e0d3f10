package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"slightbackup/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AuthMiddleware requires "Authorization: Bearer <AUTH_KEY>" when auth is
// enabled. The key is read per request so config changes apply at once.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnable {
			c.Next()
			return
		}

		token, reject := bearerToken(c.GetHeader("Authorization"))
		if reject != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reject})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.AuthKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value, or
// returns the message to reject the request with.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return "", "Invalid Authorization header format"
	}
	return token, ""
}

// RateLimitMiddleware throttles a route to perSecond requests with the given
// burst. A non-positive rate disables the limit.
func RateLimitMiddleware(perSecond float64, burst int) gin.HandlerFunc {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many export requests"})
			return
		}
		c.Next()
	}
}
