package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus 工作流运行状态
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// 工作流名称
const (
	WorkflowCardGeneration  = "card_generation"
	WorkflowCardPublish     = "card_publish"
	WorkflowCardUnpublish   = "card_unpublish"
	WorkflowCardDelete      = "card_delete"
	WorkflowBrandOnboarding = "brand_onboarding"
	WorkflowInfluencerSetup = "influencer_provisioning"
)

// WorkflowRun 流水线运行记录
type WorkflowRun struct {
	ID           string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	WorkflowName string          `json:"workflow_name" gorm:"type:varchar(100);index;not null"`
	BrandID      *string         `json:"brand_id,omitempty" gorm:"type:varchar(36);index"`
	Status       RunStatus       `json:"status" gorm:"type:varchar(20);index;not null"`
	StartedAt    time.Time       `json:"started_at" gorm:"not null"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DurationMs   *int64          `json:"duration_ms,omitempty"`
	Input        json.RawMessage `json:"input,omitempty" gorm:"type:text;serializer:json"`
	Output       json.RawMessage `json:"output,omitempty" gorm:"type:text;serializer:json"`
	Error        string          `json:"error,omitempty" gorm:"type:text"`
}

// TableName 指定表名
func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

// NewWorkflowRun 创建运行中的记录
func NewWorkflowRun(workflowName, brandID string, input json.RawMessage) *WorkflowRun {
	r := &WorkflowRun{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		Status:       RunStatusRunning,
		StartedAt:    time.Now(),
		Input:        input,
	}
	if brandID != "" {
		r.BrandID = &brandID
	}
	return r
}

// IsTerminal 是否已结束
func (r *WorkflowRun) IsTerminal() bool {
	return r.Status != RunStatusRunning
}

// Complete 完成运行
func (r *WorkflowRun) Complete(output json.RawMessage, at time.Time) {
	r.finish(RunStatusCompleted, at)
	r.Output = output
}

// Fail 运行失败
func (r *WorkflowRun) Fail(errMsg string, at time.Time) {
	r.finish(RunStatusFailed, at)
	r.Error = errMsg
}

// finish 终态转换时一次性计算耗时
func (r *WorkflowRun) finish(status RunStatus, at time.Time) {
	d := at.Sub(r.StartedAt).Milliseconds()
	if d < 0 {
		d = 0
	}
	r.Status = status
	r.CompletedAt = &at
	r.DurationMs = &d
}
