// Package runtrack 记录流水线运行的开始、结束与耗时
package runtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

// Tracker 运行记录器
type Tracker struct {
	runs repository.WorkflowRunRepository
	now  func() time.Time
}

// NewTracker 创建运行记录器
func NewTracker(runs repository.WorkflowRunRepository) *Tracker {
	return &Tracker{runs: runs, now: time.Now}
}

// Start 创建 running 状态的运行记录
func (t *Tracker) Start(ctx context.Context, workflowName, brandID string, input any) (string, error) {
	raw, err := marshalDoc(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode run input: %w", err)
	}

	run := entity.NewWorkflowRun(workflowName, brandID, raw)
	run.StartedAt = t.now()
	if err := t.runs.Create(ctx, run); err != nil {
		return "", err
	}

	metrics.WorkflowRunsInFlight.WithLabelValues(workflowName).Inc()
	return run.ID, nil
}

// Complete 标记运行完成，output 以 JSON 保存
func (t *Tracker) Complete(ctx context.Context, runID string, output any) error {
	raw, err := marshalDoc(output)
	if err != nil {
		return fmt.Errorf("failed to encode run output: %w", err)
	}
	return t.finish(ctx, runID, func(run *entity.WorkflowRun, at time.Time) {
		run.Complete(raw, at)
	})
}

// Fail 标记运行失败
func (t *Tracker) Fail(ctx context.Context, runID string, errMsg string) error {
	return t.finish(ctx, runID, func(run *entity.WorkflowRun, at time.Time) {
		run.Fail(errMsg, at)
	})
}

func (t *Tracker) finish(ctx context.Context, runID string, apply func(*entity.WorkflowRun, time.Time)) error {
	run, err := t.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("workflow run %s not found", runID)
	}
	if run.IsTerminal() {
		return fmt.Errorf("workflow run %s already %s", runID, run.Status)
	}

	apply(run, t.now())

	ok, err := t.runs.FinishIfRunning(ctx, run)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("workflow run %s was finished concurrently", runID)
	}

	metrics.WorkflowRunsInFlight.WithLabelValues(run.WorkflowName).Dec()
	metrics.WorkflowRunsTotal.WithLabelValues(run.WorkflowName, string(run.Status)).Inc()
	if run.DurationMs != nil {
		metrics.WorkflowRunDuration.WithLabelValues(run.WorkflowName, string(run.Status)).
			Observe(float64(*run.DurationMs) / 1000)
	}
	return nil
}

// Track 以运行记录包裹 fn：先 Start，fn 成功则 Complete，否则 Fail 并返回原错误
func Track[T any](ctx context.Context, t *Tracker, workflowName, brandID string, input any, fn func(ctx context.Context, runID string) (T, error)) (T, error) {
	var zero T

	runID, err := t.Start(ctx, workflowName, brandID, input)
	if err != nil {
		return zero, err
	}
	ctx = logger.WithContext(ctx, logger.RunIDKey, runID)
	ctx = logger.WithContext(ctx, logger.WorkflowKey, workflowName)

	out, fnErr := fn(ctx, runID)
	if fnErr != nil {
		if err := t.Fail(ctx, runID, fnErr.Error()); err != nil {
			logger.Error(ctx, "failed to record workflow failure", err)
		}
		return zero, fnErr
	}

	if err := t.Complete(ctx, runID, out); err != nil {
		logger.Error(ctx, "failed to record workflow completion", err)
	}
	return out, nil
}

func marshalDoc(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
