package repository

import (
	"context"

	"brand-card-studio/internal/domain/entity"
)

// InfluencerFilter 网红过滤条件
type InfluencerFilter struct {
	Status  entity.InfluencerStatus
	Enabled *bool
}

// InfluencerRepository 网红仓储接口
type InfluencerRepository interface {
	// Create 创建网红
	Create(ctx context.Context, influencer *entity.Influencer) error

	// GetByID 根据 ID 获取网红，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.Influencer, error)

	// UpdateProfile 仅写入名称、领域与简介
	UpdateProfile(ctx context.Context, influencer *entity.Influencer) error

	// UpdateImagery 仅写入形象状态、图片与错误信息，不触碰参与开关
	UpdateImagery(ctx context.Context, influencer *entity.Influencer) error

	// Delete 删除网红
	Delete(ctx context.Context, id string) error

	// List 按条件获取网红（按创建时间升序）
	List(ctx context.Context, filter *InfluencerFilter) ([]*entity.Influencer, error)

	// ListNames 获取全部网红名称，用于重名检查
	ListNames(ctx context.Context) ([]string, error)

	// SetEnabled 仅修改参与开关，返回记录是否存在
	SetEnabled(ctx context.Context, id string, enabled bool) (bool, error)
}
