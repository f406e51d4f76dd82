package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/application/influencer"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// InfluencerProvisioner 网红创建与形象生成
type InfluencerProvisioner interface {
	Provision(ctx context.Context, draft influencer.Draft) (*entity.Influencer, error)
	FindNew(ctx context.Context, count int) ([]*entity.Influencer, error)
	ProvisionImagery(ctx context.Context, id string) (*entity.Influencer, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*entity.Influencer, error)
	UpdateProfile(ctx context.Context, id string, patch influencer.ProfilePatch) (*entity.Influencer, error)
}

// InfluencerHandler 网红处理器
type InfluencerHandler struct {
	repo        repository.InfluencerRepository
	provisioner InfluencerProvisioner
}

// NewInfluencerHandler 创建网红处理器
func NewInfluencerHandler(repo repository.InfluencerRepository, provisioner InfluencerProvisioner) *InfluencerHandler {
	return &InfluencerHandler{repo: repo, provisioner: provisioner}
}

// ListInfluencers 获取网红列表
// @Summary 获取网红列表
// @Tags Influencers
// @Produce json
// @Param status query string false "形象状态" Enums(pending, ready, failed)
// @Param enabled query bool false "是否参与生成"
// @Success 200 {object} dto.Response[dto.InfluencerListResponse]
// @Router /v1/influencers [get]
func (h *InfluencerHandler) ListInfluencers(c *gin.Context) {
	ctx := c.Request.Context()

	filter := &repository.InfluencerFilter{Status: entity.InfluencerStatus(c.Query("status"))}
	switch c.Query("enabled") {
	case "true":
		v := true
		filter.Enabled = &v
	case "false":
		v := false
		filter.Enabled = &v
	}

	list, err := h.repo.List(ctx, filter)
	if err != nil {
		logger.Error(ctx, "failed to list influencers", err)
		dto.InternalError(c, "failed to list influencers")
		return
	}
	dto.Success(c, dto.ToInfluencerListResponse(list))
}

// CreateInfluencer 创建网红并生成形象，空字段从候选池补齐
// @Summary 创建网红
// @Tags Influencers
// @Accept json
// @Produce json
// @Param body body dto.CreateInfluencerRequest true "网红信息"
// @Success 201 {object} dto.Response[dto.InfluencerResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/influencers [post]
func (h *InfluencerHandler) CreateInfluencer(c *gin.Context) {
	var req dto.CreateInfluencerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inf, err := h.provisioner.Provision(c.Request.Context(), influencer.Draft{
		Name:   req.Name,
		Domain: req.Domain,
		Bio:    req.Bio,
	})
	if err != nil {
		dto.FromError(c, "failed to provision influencer", err)
		return
	}
	dto.Created(c, dto.ToInfluencerResponse(inf))
}

// FindNew 从候选池补充网红
// @Summary 从候选池补充网红
// @Tags Influencers
// @Accept json
// @Produce json
// @Param body body dto.FindNewRequest false "数量，默认 1，最多 10"
// @Success 201 {object} dto.Response[dto.InfluencerListResponse]
// @Router /v1/influencers/find-new [post]
func (h *InfluencerHandler) FindNew(c *gin.Context) {
	var req dto.FindNewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	list, err := h.provisioner.FindNew(c.Request.Context(), req.Count)
	if err != nil {
		dto.FromError(c, "failed to find new influencers", err)
		return
	}
	dto.Created(c, dto.ToInfluencerListResponse(list))
}

// GetInfluencer 获取网红详情
// @Router /v1/influencers/{id} [get]
func (h *InfluencerHandler) GetInfluencer(c *gin.Context) {
	inf, ok := h.load(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToInfluencerResponse(inf))
}

// UpdateInfluencer 更新网红资料
// @Router /v1/influencers/{id} [put]
func (h *InfluencerHandler) UpdateInfluencer(c *gin.Context) {
	var req dto.UpdateInfluencerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inf, err := h.provisioner.UpdateProfile(c.Request.Context(), dto.BindID(c), req.ToPatch())
	if err != nil {
		dto.FromError(c, "failed to update influencer", err)
		return
	}
	dto.Success(c, dto.ToInfluencerResponse(inf))
}

// DeleteInfluencer 删除网红
// @Router /v1/influencers/{id} [delete]
func (h *InfluencerHandler) DeleteInfluencer(c *gin.Context) {
	ctx := c.Request.Context()
	if _, ok := h.load(c); !ok {
		return
	}
	if err := h.repo.Delete(ctx, dto.BindID(c)); err != nil {
		logger.Error(ctx, "failed to delete influencer", err)
		dto.InternalError(c, "failed to delete influencer")
		return
	}
	dto.NoContent(c)
}

// SetEnabled 切换是否参与卡片生成
// @Router /v1/influencers/{id}/enabled [post]
func (h *InfluencerHandler) SetEnabled(c *gin.Context) {
	var req dto.SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inf, err := h.provisioner.SetEnabled(c.Request.Context(), dto.BindID(c), *req.Enabled)
	if err != nil {
		dto.FromError(c, "failed to set influencer enabled", err)
		return
	}
	dto.Success(c, dto.ToInfluencerResponse(inf))
}

// RetryImagery 重新生成形象
// @Router /v1/influencers/{id}/retry [post]
func (h *InfluencerHandler) RetryImagery(c *gin.Context) {
	inf, err := h.provisioner.ProvisionImagery(c.Request.Context(), dto.BindID(c))
	if err != nil {
		dto.FromError(c, "failed to provision influencer imagery", err)
		return
	}
	dto.Success(c, dto.ToInfluencerResponse(inf))
}

func (h *InfluencerHandler) load(c *gin.Context) (*entity.Influencer, bool) {
	ctx := c.Request.Context()
	inf, err := h.repo.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get influencer", err)
		dto.InternalError(c, "failed to get influencer")
		return nil, false
	}
	if inf == nil {
		dto.FromError(c, "influencer not found", errors.ErrInfluencerNotFound)
		return nil, false
	}
	return inf, true
}
