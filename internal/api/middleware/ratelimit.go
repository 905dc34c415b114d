package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/ratelimit"
)

// RateLimit returns a gin middleware enforcing a per-client request rate.
// Authenticated requests are keyed by actor, anonymous ones by client IP.
// Limiter errors fail open: a broken limiter must not block the ledger.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor, ok := ActorFromContext(c); ok {
			key = actor.ID
		}

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limit check failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		if !decision.Allowed {
			if decision.RetryAfter > 0 {
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests",
				},
			})
			return
		}

		c.Next()
	}
}
