package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
)

// BrandRepository 品牌仓储实现
type BrandRepository struct {
	client *Client
}

// NewBrandRepository 创建品牌仓储
func NewBrandRepository(client *Client) *BrandRepository {
	return &BrandRepository{client: client}
}

// Create 创建品牌
func (r *BrandRepository) Create(ctx context.Context, brand *entity.Brand) error {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(brand).Error; err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create brand %q: %w", brand.URLSlug, repository.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取品牌
func (r *BrandRepository) GetByID(ctx context.Context, id string) (*entity.Brand, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.GetByID")
	defer span.End()

	var brand entity.Brand
	if err := getDB(ctx, r.client.db).First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return &brand, nil
}

// GetBySlug 根据 slug 获取品牌
func (r *BrandRepository) GetBySlug(ctx context.Context, slug string) (*entity.Brand, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.GetBySlug")
	defer span.End()

	var brand entity.Brand
	if err := getDB(ctx, r.client.db).First(&brand, "url_slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get brand by slug: %w", err)
	}
	return &brand, nil
}

// SlugExists 检查 slug 是否已被占用
func (r *BrandRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.SlugExists")
	defer span.End()

	var count int64
	if err := getDB(ctx, r.client.db).Model(&entity.Brand{}).Where("url_slug = ?", slug).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check brand slug: %w", err)
	}
	return count > 0, nil
}

// Update 更新品牌
func (r *BrandRepository) Update(ctx context.Context, brand *entity.Brand) error {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(brand).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update brand: %w", err)
	}
	return nil
}

// Delete 删除品牌，并在同一事务内删除其画像、场景与卡片
func (r *BrandRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.Delete")
	defer span.End()

	cascade := func(tx *gorm.DB) error {
		for _, model := range []any{&entity.Card{}, &entity.Persona{}, &entity.Environment{}} {
			if err := tx.Where("brand_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&entity.Brand{}, "id = ?", id).Error
	}

	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = cascade(tx.WithContext(ctx))
	} else {
		err = r.client.db.WithContext(ctx).Transaction(cascade)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	return nil
}

// List 分页获取品牌列表
func (r *BrandRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Brand], error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BrandRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.Brand{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count brands: %w", err)
	}

	var brands []*entity.Brand
	if err := db.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&brands).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}

	return repository.NewPagedResult(brands, total, pagination), nil
}
