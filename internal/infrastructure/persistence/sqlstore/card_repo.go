package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
)

// CardRepository 卡片仓储实现
type CardRepository struct {
	client *Client
}

// NewCardRepository 创建卡片仓储
func NewCardRepository(client *Client) *CardRepository {
	return &CardRepository{client: client}
}

// Create 创建卡片
func (r *CardRepository) Create(ctx context.Context, card *entity.Card) error {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(card).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取卡片
func (r *CardRepository) GetByID(ctx context.Context, id string) (*entity.Card, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.GetByID")
	defer span.End()

	var card entity.Card
	if err := getDB(ctx, r.client.db).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// GetByIDs 批量获取卡片
func (r *CardRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.GetByIDs")
	defer span.End()

	var cards []*entity.Card
	if err := getDB(ctx, r.client.db).Where("id IN ?", ids).Find(&cards).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	return cards, nil
}

// Update 更新卡片
func (r *CardRepository) Update(ctx context.Context, card *entity.Card) error {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(card).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

// Delete 删除单张卡片
func (r *CardRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Card{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// DeleteByIDs 批量硬删除
func (r *CardRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.DeleteByIDs")
	defer span.End()

	result := getDB(ctx, r.client.db).Where("id IN ?", ids).Delete(&entity.Card{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete cards: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByBrand 分页获取品牌卡片
func (r *CardRepository) ListByBrand(ctx context.Context, brandID string, filter *repository.CardFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Card], error) {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.ListByBrand")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.Card{}).Where("brand_id = ?", brandID)
	if filter != nil {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.InfluencerID != "" {
			db = db.Where("influencer_id = ?", filter.InfluencerID)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []*entity.Card
	if err := db.Order("created_at DESC, id ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&cards).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	return repository.NewPagedResult(cards, total, pagination), nil
}

// ListPublishedByBrand 获取品牌已发布卡片
func (r *CardRepository) ListPublishedByBrand(ctx context.Context, brandID string) ([]*entity.Card, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.ListPublishedByBrand")
	defer span.End()

	var cards []*entity.Card
	if err := getDB(ctx, r.client.db).
		Where("brand_id = ? AND status = ?", brandID, entity.CardStatusPublished).
		Order("published_at DESC, id ASC").
		Find(&cards).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list published cards: %w", err)
	}
	return cards, nil
}

// ListQueriesByBrand 获取品牌全部卡片问题
func (r *CardRepository) ListQueriesByBrand(ctx context.Context, brandID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.ListQueriesByBrand")
	defer span.End()

	var queries []string
	if err := getDB(ctx, r.client.db).Model(&entity.Card{}).
		Where("brand_id = ?", brandID).
		Pluck("query", &queries).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list card queries: %w", err)
	}
	return queries, nil
}

// PublishIfDraft 条件发布，只有草稿会被转换
func (r *CardRepository) PublishIfDraft(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.PublishIfDraft")
	defer span.End()

	result := getDB(ctx, r.client.db).Model(&entity.Card{}).
		Where("id = ? AND status = ?", id, entity.CardStatusDraft).
		Updates(map[string]interface{}{
			"status":       entity.CardStatusPublished,
			"published_at": at,
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to publish card: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UnpublishByIDs 无条件重置为草稿
func (r *CardRepository) UnpublishByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.UnpublishByIDs")
	defer span.End()

	result := getDB(ctx, r.client.db).Model(&entity.Card{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":       entity.CardStatusDraft,
			"published_at": nil,
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to unpublish cards: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// IncrementCounter 原子递增计数
func (r *CardRepository) IncrementCounter(ctx context.Context, id string, counter repository.CardCounter) (bool, error) {
	switch counter {
	case repository.CardCounterView, repository.CardCounterShare:
	default:
		return false, fmt.Errorf("unknown card counter: %q", counter)
	}

	ctx, span := tracer.Start(ctx, "sqlstore.CardRepository.IncrementCounter")
	defer span.End()

	column := string(counter)
	result := getDB(ctx, r.client.db).Model(&entity.Card{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to increment card %s: %w", column, result.Error)
	}
	return result.RowsAffected == 1, nil
}
