package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
)

// WorkflowRunRepository 运行记录仓储实现
type WorkflowRunRepository struct {
	client *Client
}

// NewWorkflowRunRepository 创建运行记录仓储
func NewWorkflowRunRepository(client *Client) *WorkflowRunRepository {
	return &WorkflowRunRepository{client: client}
}

// Create 创建运行记录
func (r *WorkflowRunRepository) Create(ctx context.Context, run *entity.WorkflowRun) error {
	ctx, span := tracer.Start(ctx, "sqlstore.WorkflowRunRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create workflow run: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取运行记录
func (r *WorkflowRunRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowRun, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.WorkflowRunRepository.GetByID")
	defer span.End()

	var run entity.WorkflowRun
	if err := getDB(ctx, r.client.db).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get workflow run: %w", err)
	}
	return &run, nil
}

// FinishIfRunning 写入终态，仅对仍在运行的记录生效
func (r *WorkflowRunRepository) FinishIfRunning(ctx context.Context, run *entity.WorkflowRun) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.WorkflowRunRepository.FinishIfRunning")
	defer span.End()

	result := getDB(ctx, r.client.db).Model(run).
		Where("status = ?", entity.RunStatusRunning).
		Select("status", "completed_at", "duration_ms", "output", "error").
		Updates(run)
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to finish workflow run: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// List 分页获取运行记录
func (r *WorkflowRunRepository) List(ctx context.Context, filter *repository.RunFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.WorkflowRun], error) {
	ctx, span := tracer.Start(ctx, "sqlstore.WorkflowRunRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.WorkflowRun{})
	if filter != nil {
		if filter.WorkflowName != "" {
			db = db.Where("workflow_name = ?", filter.WorkflowName)
		}
		if filter.BrandID != "" {
			db = db.Where("brand_id = ?", filter.BrandID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count workflow runs: %w", err)
	}

	var runs []*entity.WorkflowRun
	if err := db.Order("started_at DESC, id ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&runs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	return repository.NewPagedResult(runs, total, pagination), nil
}
