// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 可探测的下游依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version  string
	db       HealthChecker
	optional map[string]HealthChecker
}

// NewHealthHandler 创建健康检查处理器；optional 中的依赖失败只标记 degraded
func NewHealthHandler(version string, db HealthChecker, optional map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		db:       db,
		optional: optional,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 数据库必需；Redis 与 Milvus 失败时为 degraded，不影响就绪态
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.optional)+1)
	ready := true

	if h.db == nil {
		checks["database"] = &readinessCheck{Status: "missing", Error: "database client not configured"}
		ready = false
	} else {
		check := probe(ctx, h.db, "error")
		checks["database"] = check
		if check.Status != "ok" {
			ready = false
		}
	}

	for name, dep := range h.optional {
		if dep == nil {
			checks[name] = &readinessCheck{Status: "disabled"}
			continue
		}
		checks[name] = probe(ctx, dep, "degraded")
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, dep HealthChecker, failStatus string) *readinessCheck {
	start := time.Now()
	err := dep.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = failStatus
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
