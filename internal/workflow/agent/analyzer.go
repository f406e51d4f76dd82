package agent

import (
	"context"
	"fmt"
	"strings"

	wfnode "brand-card-studio/internal/workflow/node"
	workflowport "brand-card-studio/internal/workflow/port"
	workflowprompt "brand-card-studio/internal/workflow/prompt"
	apperrors "brand-card-studio/pkg/errors"
)

// MinAnalyzedItems 画像与场景的最少数量
const MinAnalyzedItems = 3

const maxAnalysisInputRunes = 60000

// ContentAnalyzer 从品牌内容中提取客户画像与使用场景
type ContentAnalyzer struct {
	runner
}

// NewContentAnalyzer 创建内容分析器
func NewContentAnalyzer(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) *ContentAnalyzer {
	return &ContentAnalyzer{runner: newRunner(factory, prompts, opts)}
}

// Analyze 返回至少 3 个画像与 3 个场景，不足时返回 ErrInsufficientAnalysis
func (a *ContentAnalyzer) Analyze(ctx context.Context, sources []string) (*workflowport.Analysis, error) {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail("no content to analyze")
	}

	content := wfnode.TruncateByRunes(strings.Join(parts, "\n\n---\n\n"), maxAnalysisInputRunes)
	out, err := a.generate(ctx, "content_analysis", workflowprompt.PromptContentAnalysisV1,
		map[string]any{"content": content},
		&jsonSchema{name: "content_analysis", schema: analysisJSONSchema()},
	)
	if err != nil {
		return nil, err
	}

	var parsed workflowport.Analysis
	if err := wfnode.DecodeJSON(out, &parsed); err != nil {
		return nil, malformed("content analysis", err)
	}
	parsed.Personas = cleanItems(parsed.Personas)
	parsed.Environments = cleanItems(parsed.Environments)

	if len(parsed.Personas) < MinAnalyzedItems || len(parsed.Environments) < MinAnalyzedItems {
		return nil, apperrors.ErrInsufficientAnalysis.WithDetail(fmt.Sprintf(
			"got %d personas and %d environments, need at least %d of each",
			len(parsed.Personas), len(parsed.Environments), MinAnalyzedItems,
		))
	}
	return &parsed, nil
}

// cleanItems 去掉空标签与重复标签
func cleanItems(items []workflowport.AnalyzedItem) []workflowport.AnalyzedItem {
	out := make([]workflowport.AnalyzedItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it.Label = strings.TrimSpace(it.Label)
		if it.Label == "" {
			continue
		}
		key := strings.ToLower(it.Label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		it.Description = strings.TrimSpace(it.Description)
		out = append(out, it)
	}
	return out
}

func analysisJSONSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"label", "description", "tags"},
		"properties": map[string]any{
			"label":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"tags":        stringArraySchema(),
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"personas", "environments"},
		"properties": map[string]any{
			"personas":     map[string]any{"type": "array", "minItems": MinAnalyzedItems, "items": item},
			"environments": map[string]any{"type": "array", "minItems": MinAnalyzedItems, "items": item},
		},
	}
}
