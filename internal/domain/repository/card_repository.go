package repository

import (
	"context"
	"time"

	"brand-card-studio/internal/domain/entity"
)

// CardFilter 卡片过滤条件
type CardFilter struct {
	Status       entity.CardStatus
	InfluencerID string
}

// CardRepository 卡片仓储接口
type CardRepository interface {
	// Create 创建卡片
	Create(ctx context.Context, card *entity.Card) error

	// GetByID 根据 ID 获取卡片，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.Card, error)

	// GetByIDs 批量获取卡片，缺失的 ID 不返回
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Card, error)

	// Update 更新卡片
	Update(ctx context.Context, card *entity.Card) error

	// Delete 删除单张卡片
	Delete(ctx context.Context, id string) error

	// DeleteByIDs 批量硬删除，返回删除行数
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)

	// ListByBrand 分页获取品牌卡片
	ListByBrand(ctx context.Context, brandID string, filter *CardFilter, pagination Pagination) (*PagedResult[*entity.Card], error)

	// ListPublishedByBrand 获取品牌已发布卡片（按发布时间倒序）
	ListPublishedByBrand(ctx context.Context, brandID string) ([]*entity.Card, error)

	// ListQueriesByBrand 获取品牌全部卡片的问题文本，用于去重
	ListQueriesByBrand(ctx context.Context, brandID string) ([]string, error)

	// PublishIfDraft 仅当卡片为草稿时发布，返回是否发生状态转换
	PublishIfDraft(ctx context.Context, id string, at time.Time) (bool, error)

	// UnpublishByIDs 无条件重置为草稿，返回影响行数
	UnpublishByIDs(ctx context.Context, ids []string) (int64, error)

	// IncrementCounter 原子递增 view_count 或 share_count
	IncrementCounter(ctx context.Context, id string, counter CardCounter) (bool, error)
}

// CardCounter 卡片计数字段
type CardCounter string

const (
	CardCounterView  CardCounter = "view_count"
	CardCounterShare CardCounter = "share_count"
)
