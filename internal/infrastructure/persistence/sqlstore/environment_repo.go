package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
)

// EnvironmentRepository 使用场景仓储实现
type EnvironmentRepository struct {
	client *Client
}

// NewEnvironmentRepository 创建使用场景仓储
func NewEnvironmentRepository(client *Client) *EnvironmentRepository {
	return &EnvironmentRepository{client: client}
}

// Create 创建使用场景
func (r *EnvironmentRepository) Create(ctx context.Context, env *entity.Environment) error {
	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(env).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create environment: %w", err)
	}
	return nil
}

// CreateBatch 批量创建使用场景
func (r *EnvironmentRepository) CreateBatch(ctx context.Context, envs []*entity.Environment) error {
	if len(envs) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.CreateBatch")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(&envs).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create environments: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取使用场景
func (r *EnvironmentRepository) GetByID(ctx context.Context, id string) (*entity.Environment, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.GetByID")
	defer span.End()

	var env entity.Environment
	if err := getDB(ctx, r.client.db).First(&env, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	return &env, nil
}

// Update 更新使用场景
func (r *EnvironmentRepository) Update(ctx context.Context, env *entity.Environment) error {
	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(env).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update environment: %w", err)
	}
	return nil
}

// Delete 删除使用场景
func (r *EnvironmentRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Environment{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete environment: %w", err)
	}
	return nil
}

// ListByBrand 获取品牌的全部使用场景
func (r *EnvironmentRepository) ListByBrand(ctx context.Context, brandID string) ([]*entity.Environment, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.EnvironmentRepository.ListByBrand")
	defer span.End()

	var envs []*entity.Environment
	if err := getDB(ctx, r.client.db).
		Where("brand_id = ?", brandID).
		Order("created_at ASC, id ASC").
		Find(&envs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	return envs, nil
}
