package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/moments/pkg/response"
)

// RateLimit 全局令牌桶；limit <= 0 时不限流
func RateLimit(limit float64, burst int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(limit), burst)
	return func(c *gin.Context) {
		if !l.Allow() {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
