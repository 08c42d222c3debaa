package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/limiter"
	resp "go-gin-gorm-users/internal/transport/http/response"
)

// Throttle counts attempts per key (client IP by default). A limiter failure lets the
// request through and is logged.
func Throttle(l limiter.Limiter, log *zap.Logger, key func(*gin.Context) string) gin.HandlerFunc {
	if key == nil {
		key = func(c *gin.Context) string { return c.ClientIP() }
	}
	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), key(c))
		if err != nil {
			log.Warn("throttle unavailable", zap.String("path", c.FullPath()), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			resp.Abort(c, http.StatusTooManyRequests, "too many attempts, try again later")
			return
		}
		c.Next()
	}
}
