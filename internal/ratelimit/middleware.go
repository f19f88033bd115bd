package ratelimit

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/perflens/perflens/internal/errors"
)

// Middleware enforces the per-IP limit and sets standard rate limit headers.
func Middleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.Check(c.ClientIP())

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))

		if !result.Allowed {
			retryAfter := result.RetryAfter.String()
			c.Header("Retry-After", retryAfter)

			appErr := errors.NewRateLimitError(retryAfter)
			errors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
			return
		}

		c.Next()
	}
}
