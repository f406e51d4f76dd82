package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"brand-card-studio/internal/application/cardgen"
	"brand-card-studio/internal/application/publishing"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/interfaces/http/dto"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// CardGenerator 卡片生成流水线
type CardGenerator interface {
	Generate(ctx context.Context, brandID string) (*cardgen.GenerateResult, error)
	GenerateAsync(ctx context.Context, brandID string) (string, error)
}

// CardPublisher 发布流水线
type CardPublisher interface {
	Publish(ctx context.Context, cardIDs []string) (*publishing.PublishResult, error)
	Unpublish(ctx context.Context, cardIDs []string) (*publishing.BulkResult, error)
	Delete(ctx context.Context, cardIDs []string) (*publishing.BulkResult, error)
}

// CardHandler 卡片处理器
type CardHandler struct {
	cards     repository.CardRepository
	generator CardGenerator
	publisher CardPublisher
	cache     PageCache
}

// NewCardHandler 创建卡片处理器，cache 可为 nil
func NewCardHandler(cards repository.CardRepository, generator CardGenerator, publisher CardPublisher, cache PageCache) *CardHandler {
	return &CardHandler{cards: cards, generator: generator, publisher: publisher, cache: cache}
}

// GenerateCards 为品牌生成卡片
// @Summary 生成卡片
// @Description 遍历画像×场景×网红组合生成问答卡片；async=true 时入队由 job-worker 执行
// @Tags Cards
// @Produce json
// @Param id path string true "品牌 ID"
// @Param async query bool false "异步执行"
// @Success 200 {object} dto.Response[cardgen.GenerateResult]
// @Success 202 {object} dto.Response[dto.GenerationAcceptedResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/brands/{id}/cards/generate [post]
func (h *CardHandler) GenerateCards(c *gin.Context) {
	ctx := c.Request.Context()
	brandID := dto.BindID(c)
	ctx = logger.WithContext(ctx, logger.BrandIDKey, brandID)

	if c.Query("async") == "true" {
		msgID, err := h.generator.GenerateAsync(ctx, brandID)
		if err != nil {
			dto.FromError(c, "failed to enqueue card generation", err)
			return
		}
		dto.Accepted(c, &dto.GenerationAcceptedResponse{BrandID: brandID, MessageID: msgID})
		return
	}

	res, err := h.generator.Generate(ctx, brandID)
	if err != nil {
		dto.FromError(c, "failed to generate cards", err)
		return
	}
	dto.Success(c, res)
}

// ListCards 获取品牌卡片
// @Summary 获取品牌卡片
// @Tags Cards
// @Produce json
// @Param id path string true "品牌 ID"
// @Param status query string false "状态" Enums(draft, published, archived)
// @Param influencer_id query string false "网红 ID"
// @Success 200 {object} dto.Response[dto.CardListResponse]
// @Router /v1/brands/{id}/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.CardFilter{InfluencerID: c.Query("influencer_id")}
	if s := c.Query("status"); s != "" {
		status := entity.CardStatus(s)
		if !status.Valid() {
			dto.BadRequest(c, "invalid status: "+s)
			return
		}
		filter.Status = status
	}

	result, err := h.cards.ListByBrand(ctx, dto.BindID(c), filter, pageReq.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list cards", err)
		dto.InternalError(c, "failed to list cards")
		return
	}
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToCardListResponse(result.Items), meta)
}

// GetCard 获取卡片详情
// @Router /v1/cards/{id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	card, ok := h.load(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToCardResponse(card))
}

// UpdateCard 人工修订卡片内容
// @Router /v1/cards/{id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	card, ok := h.load(c)
	if !ok {
		return
	}

	req.Apply(card)
	if err := h.cards.Update(ctx, card); err != nil {
		logger.Error(ctx, "failed to update card", err)
		dto.InternalError(c, "failed to update card")
		return
	}
	if card.Status == entity.CardStatusPublished && h.cache != nil {
		if err := h.cache.Invalidate(ctx, card.BrandID); err != nil {
			logger.Warn(ctx, "failed to invalidate dataset cache", "brand_id", card.BrandID, "error", err)
		}
	}
	dto.Success(c, dto.ToCardResponse(card))
}

// DeleteCard 删除单张卡片
// @Router /v1/cards/{id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	res, err := h.publisher.Delete(c.Request.Context(), []string{dto.BindID(c)})
	if err != nil {
		dto.FromError(c, "failed to delete card", err)
		return
	}
	if res.AffectedCount == 0 {
		dto.FromError(c, "card not found", errors.ErrCardNotFound)
		return
	}
	dto.NoContent(c)
}

// RecordView 浏览计数 +1
// @Router /v1/cards/{id}/view [post]
func (h *CardHandler) RecordView(c *gin.Context) {
	h.increment(c, repository.CardCounterView)
}

// RecordShare 分享计数 +1
// @Router /v1/cards/{id}/share [post]
func (h *CardHandler) RecordShare(c *gin.Context) {
	h.increment(c, repository.CardCounterShare)
}

func (h *CardHandler) increment(c *gin.Context, counter repository.CardCounter) {
	ctx := c.Request.Context()
	found, err := h.cards.IncrementCounter(ctx, dto.BindID(c), counter)
	if err != nil {
		logger.Error(ctx, "failed to increment card counter", err, "counter", string(counter))
		dto.InternalError(c, "failed to increment counter")
		return
	}
	if !found {
		dto.FromError(c, "card not found", errors.ErrCardNotFound)
		return
	}
	dto.NoContent(c)
}

// PublishCards 批量发布
// @Summary 批量发布卡片
// @Description 仅草稿可发布；不存在或状态不符的卡片计入 invalid 并附原因
// @Tags Cards
// @Accept json
// @Produce json
// @Param body body dto.CardIDsRequest true "卡片 ID"
// @Success 200 {object} dto.Response[publishing.PublishResult]
// @Router /v1/cards/publish [post]
func (h *CardHandler) PublishCards(c *gin.Context) {
	var req dto.CardIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.publisher.Publish(c.Request.Context(), req.CardIDs)
	if err != nil {
		dto.FromError(c, "failed to publish cards", err)
		return
	}
	dto.Success(c, res)
}

// UnpublishCards 批量撤回为草稿
// @Router /v1/cards/unpublish [post]
func (h *CardHandler) UnpublishCards(c *gin.Context) {
	h.bulk(c, "failed to unpublish cards", h.publisher.Unpublish)
}

// DeleteCards 批量删除
// @Router /v1/cards/delete [post]
func (h *CardHandler) DeleteCards(c *gin.Context) {
	h.bulk(c, "failed to delete cards", h.publisher.Delete)
}

func (h *CardHandler) bulk(c *gin.Context, msg string, op func(context.Context, []string) (*publishing.BulkResult, error)) {
	var req dto.CardIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := op(c.Request.Context(), req.CardIDs)
	if err != nil {
		dto.FromError(c, msg, err)
		return
	}
	dto.Success(c, res)
}

func (h *CardHandler) load(c *gin.Context) (*entity.Card, bool) {
	ctx := c.Request.Context()
	card, err := h.cards.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get card", err)
		dto.InternalError(c, "failed to get card")
		return nil, false
	}
	if card == nil {
		dto.FromError(c, "card not found", errors.ErrCardNotFound)
		return nil, false
	}
	return card, true
}
