package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/domain/repository"
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = repository.DefaultPageSize
	}
	if r.PageSize > repository.MaxPageSize {
		r.PageSize = repository.MaxPageSize
	}
}

// Pagination 转为仓储分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 从 Gin Context 绑定分页参数
func BindPage(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     parseIntWithDefault(c.Query("page"), 1),
		PageSize: parseIntWithDefault(c.Query("page_size"), repository.DefaultPageSize),
	}
	req.Normalize()
	return req
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindID 从 URI 绑定资源 ID
func BindID(c *gin.Context) string {
	return c.Param("id")
}

// BindBrandID 从 URI 绑定品牌 ID（或 slug）
func BindBrandID(c *gin.Context) string {
	return c.Param("brandId")
}

// CardIDsRequest 批量卡片操作请求
type CardIDsRequest struct {
	CardIDs []string `json:"card_ids" binding:"required"`
}
