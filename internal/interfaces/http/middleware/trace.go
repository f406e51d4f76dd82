package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/tracer"
)

// TraceIDHeader 响应中回传的 trace ID 头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把 otelgin 创建的 trace_id/span_id 写入 Gin 与日志上下文
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if traceID := tracer.TraceID(ctx); traceID != "" {
			spanID := tracer.SpanID(ctx)
			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)
			c.Header(TraceIDHeader, traceID)
		}

		c.Next()
	}
}
