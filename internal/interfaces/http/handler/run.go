package handler

import (
	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// RunHandler 工作流运行记录处理器
type RunHandler struct {
	runs repository.WorkflowRunRepository
}

// NewRunHandler 创建运行记录处理器
func NewRunHandler(runs repository.WorkflowRunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// ListRuns 获取运行记录
// @Summary 获取运行记录
// @Tags Runs
// @Produce json
// @Param workflow query string false "工作流名称"
// @Param brand_id query string false "品牌 ID"
// @Param status query string false "状态" Enums(running, completed, failed)
// @Success 200 {object} dto.Response[dto.RunListResponse]
// @Router /v1/runs [get]
func (h *RunHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.RunFilter{
		WorkflowName: c.Query("workflow"),
		BrandID:      c.Query("brand_id"),
		Status:       entity.RunStatus(c.Query("status")),
	}

	result, err := h.runs.List(ctx, filter, pageReq.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list runs", err)
		dto.InternalError(c, "failed to list runs")
		return
	}
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToRunListResponse(result.Items), meta)
}

// GetRun 获取运行记录详情
// @Router /v1/runs/{id} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()

	run, err := h.runs.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get run", err)
		dto.InternalError(c, "failed to get run")
		return
	}
	if run == nil {
		dto.FromError(c, "run not found", errors.ErrRunNotFound)
		return
	}
	dto.Success(c, dto.ToRunResponse(run))
}
