package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.URL.Path == "/metrics" {
			ctx.Next()
			return
		}
		done := metrics.HTTPStarted()
		start := time.Now()
		ctx.Next()
		done()
		metrics.ObserveHTTP(ctx.Request.Method, ctx.FullPath(), ctx.Writer.Status(), time.Since(start))
	}
}
