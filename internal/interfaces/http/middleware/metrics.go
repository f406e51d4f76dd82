package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brand-card-studio/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件，path 使用路由模板避免基数爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
