package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
)

// InfluencerRepository 网红仓储实现
type InfluencerRepository struct {
	client *Client
}

// NewInfluencerRepository 创建网红仓储
func NewInfluencerRepository(client *Client) *InfluencerRepository {
	return &InfluencerRepository{client: client}
}

// Create 创建网红
func (r *InfluencerRepository) Create(ctx context.Context, influencer *entity.Influencer) error {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(influencer).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create influencer: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取网红
func (r *InfluencerRepository) GetByID(ctx context.Context, id string) (*entity.Influencer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.GetByID")
	defer span.End()

	var influencer entity.Influencer
	if err := getDB(ctx, r.client.db).First(&influencer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}
	return &influencer, nil
}

// UpdateProfile 更新网红资料
func (r *InfluencerRepository) UpdateProfile(ctx context.Context, influencer *entity.Influencer) error {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.UpdateProfile")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(influencer).
		Select("name", "domain", "bio", "updated_at").
		Updates(influencer).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update influencer profile: %w", err)
	}
	return nil
}

// UpdateImagery 更新形象生成结果，enabled 由 SetEnabled 独立维护
func (r *InfluencerRepository) UpdateImagery(ctx context.Context, influencer *entity.Influencer) error {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.UpdateImagery")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(influencer).
		Select("status", "image_url", "action_image_urls", "error_message", "updated_at").
		Updates(influencer).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update influencer imagery: %w", err)
	}
	return nil
}

// Delete 删除网红
func (r *InfluencerRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Influencer{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete influencer: %w", err)
	}
	return nil
}

// List 按条件获取网红
func (r *InfluencerRepository) List(ctx context.Context, filter *repository.InfluencerFilter) ([]*entity.Influencer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.Influencer{})
	if filter != nil {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Enabled != nil {
			db = db.Where("enabled = ?", *filter.Enabled)
		}
	}

	var influencers []*entity.Influencer
	if err := db.Order("created_at ASC, id ASC").Find(&influencers).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list influencers: %w", err)
	}
	return influencers, nil
}

// ListNames 获取全部网红名称
func (r *InfluencerRepository) ListNames(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.ListNames")
	defer span.End()

	var names []string
	if err := getDB(ctx, r.client.db).Model(&entity.Influencer{}).Pluck("name", &names).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list influencer names: %w", err)
	}
	return names, nil
}

// SetEnabled 修改参与开关，不影响状态
func (r *InfluencerRepository) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.InfluencerRepository.SetEnabled")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Influencer{}).Where("id = ?", id).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check influencer: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	if err := db.Model(&entity.Influencer{}).Where("id = ?", id).Update("enabled", enabled).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to set influencer enabled: %w", err)
	}
	return true, nil
}
