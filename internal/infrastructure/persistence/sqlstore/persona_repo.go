package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
)

// PersonaRepository 客户画像仓储实现
type PersonaRepository struct {
	client *Client
}

// NewPersonaRepository 创建客户画像仓储
func NewPersonaRepository(client *Client) *PersonaRepository {
	return &PersonaRepository{client: client}
}

// Create 创建客户画像
func (r *PersonaRepository) Create(ctx context.Context, persona *entity.Persona) error {
	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(persona).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create persona: %w", err)
	}
	return nil
}

// CreateBatch 批量创建客户画像
func (r *PersonaRepository) CreateBatch(ctx context.Context, personas []*entity.Persona) error {
	if len(personas) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.CreateBatch")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(&personas).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create personas: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取客户画像
func (r *PersonaRepository) GetByID(ctx context.Context, id string) (*entity.Persona, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.GetByID")
	defer span.End()

	var persona entity.Persona
	if err := getDB(ctx, r.client.db).First(&persona, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return &persona, nil
}

// Update 更新客户画像
func (r *PersonaRepository) Update(ctx context.Context, persona *entity.Persona) error {
	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(persona).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update persona: %w", err)
	}
	return nil
}

// Delete 删除客户画像
func (r *PersonaRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Persona{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return nil
}

// ListByBrand 获取品牌的全部客户画像
func (r *PersonaRepository) ListByBrand(ctx context.Context, brandID string) ([]*entity.Persona, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.PersonaRepository.ListByBrand")
	defer span.End()

	var personas []*entity.Persona
	if err := getDB(ctx, r.client.db).
		Where("brand_id = ?", brandID).
		Order("created_at ASC, id ASC").
		Find(&personas).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return personas, nil
}
