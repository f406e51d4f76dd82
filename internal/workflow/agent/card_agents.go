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

// QueryAgent 生成用户提问
type QueryAgent struct {
	runner
}

func NewQueryAgent(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) *QueryAgent {
	return &QueryAgent{runner: newRunner(factory, prompts, opts)}
}

func (a *QueryAgent) Ask(ctx context.Context, combo workflowport.Combination) (string, error) {
	out, err := a.generate(ctx, "card_query", workflowprompt.PromptCardQueryV1, comboVars(combo), nil)
	if err != nil {
		return "", err
	}
	q := wfnode.CleanText(out)
	if q == "" {
		return "", apperrors.ErrLLMCallFailed.WithDetail("empty query")
	}
	return q, nil
}

// AnswerAgent 以网红身份作答
type AnswerAgent struct {
	runner
}

func NewAnswerAgent(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) *AnswerAgent {
	return &AnswerAgent{runner: newRunner(factory, prompts, opts)}
}

func (a *AnswerAgent) Answer(ctx context.Context, combo workflowport.Combination, query string) (string, error) {
	vars := comboVars(combo)
	vars["query"] = strings.TrimSpace(query)
	out, err := a.generate(ctx, "card_answer", workflowprompt.PromptCardAnswerV1, vars, nil)
	if err != nil {
		return "", err
	}
	ans := wfnode.CleanText(out)
	if ans == "" {
		return "", apperrors.ErrLLMCallFailed.WithDetail("empty answer")
	}
	return ans, nil
}

// SafetyAgent 发布前的内容审查
type SafetyAgent struct {
	runner
}

func NewSafetyAgent(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) *SafetyAgent {
	return &SafetyAgent{runner: newRunner(factory, prompts, opts)}
}

// Review 返回审查结论。approved 字段缺失视为无法解析
func (a *SafetyAgent) Review(ctx context.Context, query, response string) (*workflowport.SafetyVerdict, error) {
	out, err := a.generate(ctx, "safety_review", workflowprompt.PromptSafetyReviewV1,
		map[string]any{"query": query, "response": response},
		&jsonSchema{name: "safety_verdict", schema: safetyJSONSchema()},
	)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Approved       *bool    `json:"approved"`
		Issues         []string `json:"issues"`
		Recommendation string   `json:"recommendation"`
	}
	if err := wfnode.DecodeJSON(out, &parsed); err != nil {
		return nil, malformed("safety verdict", err)
	}
	if parsed.Approved == nil {
		return nil, malformed("safety verdict", fmt.Errorf("missing approved field"))
	}

	rec := strings.ToLower(strings.TrimSpace(parsed.Recommendation))
	switch rec {
	case workflowport.RecommendationApprove, workflowport.RecommendationRevise, workflowport.RecommendationReject:
	case "":
		rec = workflowport.RecommendationApprove
		if !*parsed.Approved {
			rec = workflowport.RecommendationReject
		}
	default:
		return nil, malformed("safety verdict", fmt.Errorf("unknown recommendation %q", parsed.Recommendation))
	}

	issues := parsed.Issues
	if issues == nil {
		issues = []string{}
	}
	return &workflowport.SafetyVerdict{
		Approved:       *parsed.Approved,
		Issues:         issues,
		Recommendation: rec,
	}, nil
}

func safetyJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"approved", "issues", "recommendation"},
		"properties": map[string]any{
			"approved": map[string]any{"type": "boolean"},
			"issues":   stringArraySchema(),
			"recommendation": map[string]any{
				"type": "string",
				"enum": []any{workflowport.RecommendationApprove, workflowport.RecommendationRevise, workflowport.RecommendationReject},
			},
		},
	}
}

// ImageBriefAgent 生成配图说明
type ImageBriefAgent struct {
	runner
}

func NewImageBriefAgent(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) *ImageBriefAgent {
	return &ImageBriefAgent{runner: newRunner(factory, prompts, opts)}
}

func (a *ImageBriefAgent) Brief(ctx context.Context, combo workflowport.Combination, query, response string) (*workflowport.ImageBrief, error) {
	vars := comboVars(combo)
	vars["query"] = strings.TrimSpace(query)
	vars["response"] = strings.TrimSpace(response)

	out, err := a.generate(ctx, "image_brief", workflowprompt.PromptImageBriefV1, vars,
		&jsonSchema{name: "image_brief", schema: imageBriefJSONSchema()},
	)
	if err != nil {
		return nil, err
	}

	var brief workflowport.ImageBrief
	if err := wfnode.DecodeJSON(out, &brief); err != nil {
		return nil, malformed("image brief", err)
	}
	brief.Prompt = strings.TrimSpace(brief.Prompt)
	if brief.Prompt == "" {
		return nil, malformed("image brief", fmt.Errorf("empty prompt"))
	}

	// 模型可能编造不存在的链接，只保留 http(s) 与 data URL
	refs := make([]string, 0, len(brief.ReferenceImageURLs))
	for _, u := range brief.ReferenceImageURLs {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "data:image/") {
			refs = append(refs, u)
		}
	}
	brief.ReferenceImageURLs = refs
	return &brief, nil
}

func imageBriefJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"prompt", "referenceImageUrls", "imageSize"},
		"properties": map[string]any{
			"prompt":             map[string]any{"type": "string"},
			"referenceImageUrls": stringArraySchema(),
			"imageSize":          map[string]any{"type": "string"},
		},
	}
}
