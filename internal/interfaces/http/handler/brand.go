package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/application/onboarding"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// Onboarder 品牌接入
type Onboarder interface {
	Onboard(ctx context.Context, in onboarding.Input) (*onboarding.Result, error)
}

// PageCache 数据集页面缓存失效
type PageCache interface {
	Invalidate(ctx context.Context, brandIDs ...string) error
}

// BrandHandler 品牌处理器
type BrandHandler struct {
	brands    repository.BrandRepository
	onboarder Onboarder
	cache     PageCache
}

// NewBrandHandler 创建品牌处理器，cache 可为 nil
func NewBrandHandler(brands repository.BrandRepository, onboarder Onboarder, cache PageCache) *BrandHandler {
	return &BrandHandler{brands: brands, onboarder: onboarder, cache: cache}
}

// ListBrands 获取品牌列表
// @Summary 获取品牌列表
// @Tags Brands
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.BrandListResponse]
// @Router /v1/brands [get]
func (h *BrandHandler) ListBrands(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	result, err := h.brands.List(ctx, pageReq.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list brands", err)
		dto.InternalError(c, "failed to list brands")
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToBrandListResponse(result.Items), meta)
}

// OnboardBrand 接入品牌：抓取内容、分析画像与场景
// @Summary 接入品牌
// @Tags Brands
// @Accept json
// @Produce json
// @Param body body dto.OnboardBrandRequest true "品牌信息"
// @Success 201 {object} dto.Response[dto.OnboardBrandResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/brands [post]
func (h *BrandHandler) OnboardBrand(c *gin.Context) {
	var req dto.OnboardBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.onboarder.Onboard(c.Request.Context(), req.ToInput())
	if err != nil {
		dto.FromError(c, "failed to onboard brand", err)
		return
	}
	dto.Created(c, dto.ToOnboardBrandResponse(res))
}

// GetBrand 获取品牌详情
// @Summary 获取品牌详情
// @Tags Brands
// @Produce json
// @Param id path string true "品牌 ID"
// @Success 200 {object} dto.Response[dto.BrandResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/brands/{id} [get]
func (h *BrandHandler) GetBrand(c *gin.Context) {
	ctx := c.Request.Context()

	brand, err := h.brands.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get brand", err)
		dto.InternalError(c, "failed to get brand")
		return
	}
	if brand == nil {
		dto.FromError(c, "brand not found", errors.ErrBrandNotFound)
		return
	}
	dto.Success(c, dto.ToBrandResponse(brand))
}

// UpdateBrand 更新品牌
// @Summary 更新品牌
// @Tags Brands
// @Accept json
// @Produce json
// @Param id path string true "品牌 ID"
// @Param body body dto.UpdateBrandRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.BrandResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/brands/{id} [put]
func (h *BrandHandler) UpdateBrand(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	brand, err := h.brands.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get brand", err)
		dto.InternalError(c, "failed to get brand")
		return
	}
	if brand == nil {
		dto.FromError(c, "brand not found", errors.ErrBrandNotFound)
		return
	}

	req.Apply(brand)
	if err := h.brands.Update(ctx, brand); err != nil {
		logger.Error(ctx, "failed to update brand", err)
		dto.InternalError(c, "failed to update brand")
		return
	}
	h.invalidate(ctx, brand.ID)
	dto.Success(c, dto.ToBrandResponse(brand))
}

// DeleteBrand 删除品牌及其画像、场景与卡片
// @Summary 删除品牌
// @Tags Brands
// @Param id path string true "品牌 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/brands/{id} [delete]
func (h *BrandHandler) DeleteBrand(c *gin.Context) {
	ctx := c.Request.Context()
	id := dto.BindID(c)

	brand, err := h.brands.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get brand", err)
		dto.InternalError(c, "failed to get brand")
		return
	}
	if brand == nil {
		dto.FromError(c, "brand not found", errors.ErrBrandNotFound)
		return
	}

	if err := h.brands.Delete(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete brand", err)
		dto.InternalError(c, "failed to delete brand")
		return
	}
	h.invalidate(ctx, id)
	dto.NoContent(c)
}

func (h *BrandHandler) invalidate(ctx context.Context, brandID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, brandID); err != nil {
		logger.Warn(ctx, "failed to invalidate dataset cache", "brand_id", brandID, "error", err)
	}
}
