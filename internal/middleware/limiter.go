package middleware

import (
	"github.com/haierkeys/fast-library-service/pkg/app"
	"github.com/haierkeys/fast-library-service/pkg/code"
	"github.com/haierkeys/fast-library-service/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter 按请求路径限流，路径无规则时放行
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(l, c.FullPath()) {
			response := app.NewResponse(c)
			response.ToResponse(code.ErrorTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
