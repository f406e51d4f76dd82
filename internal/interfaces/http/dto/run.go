package dto

import (
	"encoding/json"
	"time"

	"brand-card-studio/internal/domain/entity"
)

// RunResponse 工作流运行记录响应
type RunResponse struct {
	ID           string          `json:"id"`
	WorkflowName string          `json:"workflow_name"`
	BrandID      *string         `json:"brand_id,omitempty"`
	Status       string          `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DurationMs   *int64          `json:"duration_ms,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ToRunResponse 转换运行记录
func ToRunResponse(r *entity.WorkflowRun) *RunResponse {
	if r == nil {
		return nil
	}
	return &RunResponse{
		ID:           r.ID,
		WorkflowName: r.WorkflowName,
		BrandID:      r.BrandID,
		Status:       string(r.Status),
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		DurationMs:   r.DurationMs,
		Input:        r.Input,
		Output:       r.Output,
		Error:        r.Error,
	}
}

// RunListResponse 运行记录列表响应
type RunListResponse struct {
	Runs []*RunResponse `json:"runs"`
}

// ToRunListResponse 转换运行记录列表
func ToRunListResponse(list []*entity.WorkflowRun) *RunListResponse {
	out := make([]*RunResponse, 0, len(list))
	for _, r := range list {
		out = append(out, ToRunResponse(r))
	}
	return &RunListResponse{Runs: out}
}
