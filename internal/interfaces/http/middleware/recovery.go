// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// Recovery Panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":     http.StatusInternalServerError,
					"message":  errors.ErrInternalError.Message,
					"error":    gin.H{"error_code": errors.CodeInternalError},
					"trace_id": c.GetString("trace_id"),
				})
			}
		}()

		c.Next()
	}
}
