package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// DatasetRenderer 数据集页面渲染
type DatasetRenderer interface {
	Render(ctx context.Context, brandSlugOrID string) ([]byte, error)
}

// DatasetHandler 公开数据集页面处理器
type DatasetHandler struct {
	renderer DatasetRenderer
}

// NewDatasetHandler 创建数据集页面处理器
func NewDatasetHandler(renderer DatasetRenderer) *DatasetHandler {
	return &DatasetHandler{renderer: renderer}
}

// Show 渲染品牌已发布卡片
// @Summary 公开数据集页面
// @Tags Dataset
// @Produce html
// @Param brandId path string true "品牌 ID 或 slug"
// @Success 200 {string} string "HTML"
// @Router /dataset/{brandId} [get]
func (h *DatasetHandler) Show(c *gin.Context) {
	page, err := h.renderer.Render(c.Request.Context(), dto.BindBrandID(c))
	if err != nil {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "failed to render dataset page", err)
		}
		c.String(appErr.HTTPStatus, appErr.Message)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
