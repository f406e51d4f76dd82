package repository

import (
	"context"

	"brand-card-studio/internal/domain/entity"
)

// RunFilter 运行记录过滤条件
type RunFilter struct {
	WorkflowName string
	BrandID      string
	Status       entity.RunStatus
}

// WorkflowRunRepository 运行记录仓储接口
type WorkflowRunRepository interface {
	// Create 创建运行记录
	Create(ctx context.Context, run *entity.WorkflowRun) error

	// GetByID 根据 ID 获取运行记录，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.WorkflowRun, error)

	// FinishIfRunning 仅当记录仍为 running 时写入终态，返回是否写入
	FinishIfRunning(ctx context.Context, run *entity.WorkflowRun) (bool, error)

	// List 分页获取运行记录（按开始时间倒序）
	List(ctx context.Context, filter *RunFilter, pagination Pagination) (*PagedResult[*entity.WorkflowRun], error)
}
