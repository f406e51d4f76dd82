// Package service 定义跨层共享的领域上下文约定
package service

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

type llmCtxKey struct{ name string }

var (
	llmCtxKeyWorkflow = llmCtxKey{"llm_workflow"}
	llmCtxKeyProvider = llmCtxKey{"llm_provider"}
)

// WithWorkflowProvider 标记本次 LLM 调用所属的流水线阶段与服务商，供回调打点使用
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	if w := strings.TrimSpace(workflow); w != "" {
		ctx = context.WithValue(ctx, llmCtxKeyWorkflow, w)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, llmCtxKeyProvider, p)
	}
	return ctx
}

// WorkflowFromContext 读取流水线阶段，缺省为 unknown
func WorkflowFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 读取服务商，缺省为 unknown
func ProviderFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyProvider)
}

func labelFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s
	}
	return unknownLabel
}
