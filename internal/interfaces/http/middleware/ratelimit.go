package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按客户端 IP 与路由模板限流；limiter 为 nil 时不限流
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, keyFn func(clientIP, endpoint string) string) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := keyFn(c.ClientIP(), c.FullPath())

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			dto.TooManyRequests(c, "rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
