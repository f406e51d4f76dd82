package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// PersonaHandler 客户画像与使用场景处理器
type PersonaHandler struct {
	brands       repository.BrandRepository
	personas     repository.PersonaRepository
	environments repository.EnvironmentRepository
}

// NewPersonaHandler 创建画像/场景处理器
func NewPersonaHandler(brands repository.BrandRepository, personas repository.PersonaRepository, environments repository.EnvironmentRepository) *PersonaHandler {
	return &PersonaHandler{brands: brands, personas: personas, environments: environments}
}

// brandExists 品牌不存在时写入 404 并返回 false
func (h *PersonaHandler) brandExists(c *gin.Context, brandID string) bool {
	ctx := c.Request.Context()
	brand, err := h.brands.GetByID(ctx, brandID)
	if err != nil {
		logger.Error(ctx, "failed to get brand", err)
		dto.InternalError(c, "failed to get brand")
		return false
	}
	if brand == nil {
		dto.FromError(c, "brand not found", errors.ErrBrandNotFound)
		return false
	}
	return true
}

// ListPersonas 获取品牌的客户画像
// @Summary 获取客户画像列表
// @Tags Personas
// @Produce json
// @Param id path string true "品牌 ID"
// @Success 200 {object} dto.Response[[]dto.LabelResponse]
// @Router /v1/brands/{id}/personas [get]
func (h *PersonaHandler) ListPersonas(c *gin.Context) {
	ctx := c.Request.Context()
	brandID := dto.BindID(c)
	if !h.brandExists(c, brandID) {
		return
	}

	list, err := h.personas.ListByBrand(ctx, brandID)
	if err != nil {
		logger.Error(ctx, "failed to list personas", err)
		dto.InternalError(c, "failed to list personas")
		return
	}
	dto.Success(c, dto.ToPersonaResponses(list))
}

// CreatePersona 创建客户画像
// @Summary 创建客户画像
// @Tags Personas
// @Accept json
// @Produce json
// @Param id path string true "品牌 ID"
// @Param body body dto.LabelRequest true "画像"
// @Success 201 {object} dto.Response[dto.LabelResponse]
// @Router /v1/brands/{id}/personas [post]
func (h *PersonaHandler) CreatePersona(c *gin.Context) {
	ctx := c.Request.Context()
	brandID := dto.BindID(c)

	var req dto.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.brandExists(c, brandID) {
		return
	}

	persona := entity.NewPersona(brandID, req.Label, req.Description, req.Tags)
	if err := h.personas.Create(ctx, persona); err != nil {
		logger.Error(ctx, "failed to create persona", err)
		dto.InternalError(c, "failed to create persona")
		return
	}
	dto.Created(c, dto.ToPersonaResponse(persona))
}

// GetPersona 获取客户画像
// @Router /v1/personas/{id} [get]
func (h *PersonaHandler) GetPersona(c *gin.Context) {
	persona, ok := h.loadPersona(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToPersonaResponse(persona))
}

// UpdatePersona 更新客户画像
// @Router /v1/personas/{id} [put]
func (h *PersonaHandler) UpdatePersona(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	persona, ok := h.loadPersona(c)
	if !ok {
		return
	}

	updated := entity.NewPersona(persona.BrandID, req.Label, req.Description, req.Tags)
	persona.Label, persona.Description, persona.Tags = updated.Label, updated.Description, updated.Tags
	if err := h.personas.Update(ctx, persona); err != nil {
		logger.Error(ctx, "failed to update persona", err)
		dto.InternalError(c, "failed to update persona")
		return
	}
	dto.Success(c, dto.ToPersonaResponse(persona))
}

// DeletePersona 删除客户画像
// @Router /v1/personas/{id} [delete]
func (h *PersonaHandler) DeletePersona(c *gin.Context) {
	h.delete(c, h.personas.Delete, "persona", errors.ErrPersonaNotFound, func(ctx context.Context, id string) (bool, error) {
		p, err := h.personas.GetByID(ctx, id)
		return p != nil, err
	})
}

func (h *PersonaHandler) loadPersona(c *gin.Context) (*entity.Persona, bool) {
	ctx := c.Request.Context()
	persona, err := h.personas.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get persona", err)
		dto.InternalError(c, "failed to get persona")
		return nil, false
	}
	if persona == nil {
		dto.FromError(c, "persona not found", errors.ErrPersonaNotFound)
		return nil, false
	}
	return persona, true
}

// ListEnvironments 获取品牌的使用场景
// @Router /v1/brands/{id}/environments [get]
func (h *PersonaHandler) ListEnvironments(c *gin.Context) {
	ctx := c.Request.Context()
	brandID := dto.BindID(c)
	if !h.brandExists(c, brandID) {
		return
	}

	list, err := h.environments.ListByBrand(ctx, brandID)
	if err != nil {
		logger.Error(ctx, "failed to list environments", err)
		dto.InternalError(c, "failed to list environments")
		return
	}
	dto.Success(c, dto.ToEnvironmentResponses(list))
}

// CreateEnvironment 创建使用场景
// @Router /v1/brands/{id}/environments [post]
func (h *PersonaHandler) CreateEnvironment(c *gin.Context) {
	ctx := c.Request.Context()
	brandID := dto.BindID(c)

	var req dto.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.brandExists(c, brandID) {
		return
	}

	env := entity.NewEnvironment(brandID, req.Label, req.Description, req.Tags)
	if err := h.environments.Create(ctx, env); err != nil {
		logger.Error(ctx, "failed to create environment", err)
		dto.InternalError(c, "failed to create environment")
		return
	}
	dto.Created(c, dto.ToEnvironmentResponse(env))
}

// GetEnvironment 获取使用场景
// @Router /v1/environments/{id} [get]
func (h *PersonaHandler) GetEnvironment(c *gin.Context) {
	env, ok := h.loadEnvironment(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToEnvironmentResponse(env))
}

// UpdateEnvironment 更新使用场景
// @Router /v1/environments/{id} [put]
func (h *PersonaHandler) UpdateEnvironment(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	env, ok := h.loadEnvironment(c)
	if !ok {
		return
	}

	updated := entity.NewEnvironment(env.BrandID, req.Label, req.Description, req.Tags)
	env.Label, env.Description, env.Tags = updated.Label, updated.Description, updated.Tags
	if err := h.environments.Update(ctx, env); err != nil {
		logger.Error(ctx, "failed to update environment", err)
		dto.InternalError(c, "failed to update environment")
		return
	}
	dto.Success(c, dto.ToEnvironmentResponse(env))
}

// DeleteEnvironment 删除使用场景
// @Router /v1/environments/{id} [delete]
func (h *PersonaHandler) DeleteEnvironment(c *gin.Context) {
	h.delete(c, h.environments.Delete, "environment", errors.ErrEnvironmentNotFound, func(ctx context.Context, id string) (bool, error) {
		e, err := h.environments.GetByID(ctx, id)
		return e != nil, err
	})
}

func (h *PersonaHandler) loadEnvironment(c *gin.Context) (*entity.Environment, bool) {
	ctx := c.Request.Context()
	env, err := h.environments.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get environment", err)
		dto.InternalError(c, "failed to get environment")
		return nil, false
	}
	if env == nil {
		dto.FromError(c, "environment not found", errors.ErrEnvironmentNotFound)
		return nil, false
	}
	return env, true
}

func (h *PersonaHandler) delete(
	c *gin.Context,
	remove func(ctx context.Context, id string) error,
	what string,
	notFound *errors.AppError,
	exists func(ctx context.Context, id string) (bool, error),
) {
	ctx := c.Request.Context()
	id := dto.BindID(c)

	ok, err := exists(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get "+what, err)
		dto.InternalError(c, "failed to get "+what)
		return
	}
	if !ok {
		dto.FromError(c, what+" not found", notFound)
		return
	}
	if err := remove(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete "+what, err)
		dto.InternalError(c, "failed to delete "+what)
		return
	}
	dto.NoContent(c)
}
