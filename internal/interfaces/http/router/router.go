// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/interfaces/http/handler"
	"brand-card-studio/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health      *handler.HealthHandler
	Brand       *handler.BrandHandler
	Persona     *handler.PersonaHandler
	Influencer  *handler.InfluencerHandler
	Card        *handler.CardHandler
	Run         *handler.RunHandler
	Dataset     *handler.DatasetHandler
	RateLimiter middleware.RateLimiter
	// RateLimitKey 由 redis 包提供，limiter 为 nil 时不使用
	RateLimitKey func(clientIP, endpoint string) string
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, handlers *Handlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 本地存储的生成图片
	if r.cfg.Storage.Backend == config.StorageBackendLocal {
		r.engine.Static(r.cfg.Storage.Local.URLPrefix, r.cfg.Storage.Local.Dir)
	}

	r.engine.GET("/dataset/:brandId", h.Dataset.Show)

	generateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: r.cfg.Security.RateLimit.Enabled,
		Limit:   r.cfg.Security.RateLimit.Limit,
		Window:  r.cfg.Security.RateLimit.Window,
	}, h.RateLimiter, h.RateLimitKey)

	RegisterV1Routes(r.engine.Group("/v1"), h, generateLimit)
}
