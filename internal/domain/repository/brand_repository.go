// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"brand-card-studio/internal/domain/entity"
)

// BrandRepository 品牌仓储接口
type BrandRepository interface {
	// Create 创建品牌
	Create(ctx context.Context, brand *entity.Brand) error

	// GetByID 根据 ID 获取品牌，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.Brand, error)

	// GetBySlug 根据 URL slug 获取品牌
	GetBySlug(ctx context.Context, slug string) (*entity.Brand, error)

	// SlugExists 检查 slug 是否已被占用
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Update 更新品牌
	Update(ctx context.Context, brand *entity.Brand) error

	// Delete 删除品牌并级联删除画像、场景与卡片
	Delete(ctx context.Context, id string) error

	// List 分页获取品牌列表
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Brand], error)
}

// PersonaRepository 客户画像仓储接口
type PersonaRepository interface {
	Create(ctx context.Context, persona *entity.Persona) error
	CreateBatch(ctx context.Context, personas []*entity.Persona) error
	GetByID(ctx context.Context, id string) (*entity.Persona, error)
	Update(ctx context.Context, persona *entity.Persona) error
	Delete(ctx context.Context, id string) error
	ListByBrand(ctx context.Context, brandID string) ([]*entity.Persona, error)
}

// EnvironmentRepository 使用场景仓储接口
type EnvironmentRepository interface {
	Create(ctx context.Context, env *entity.Environment) error
	CreateBatch(ctx context.Context, envs []*entity.Environment) error
	GetByID(ctx context.Context, id string) (*entity.Environment, error)
	Update(ctx context.Context, env *entity.Environment) error
	Delete(ctx context.Context, id string) error
	ListByBrand(ctx context.Context, brandID string) ([]*entity.Environment, error)
}
