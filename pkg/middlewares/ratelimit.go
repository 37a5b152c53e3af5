package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"go.uber.org/zap"
)

// RateLimit rejects requests with 429 once the limiter runs out of tokens.
func RateLimit(logger *zap.Logger, limiter *pkg.DistributedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.Request.Context()) {
			c.Next()
			return
		}
		traceID := c.GetString(pkg.TraceId)
		resp := pkg.ToErrorResponse(logger, traceID,
			pkg.NewAppError(pkg.ErrRateLimitedCode, pkg.ErrRateLimitedCode.Message, pkg.ErrRateLimitExceeded))
		c.AbortWithStatusJSON(resp.Status, resp)
	}
}
