// Package agent 基于 eino ChatModel 实现内容分析与卡片生成各阶段的智能体
package agent

import (
	"context"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	llmctx "brand-card-studio/internal/domain/service"
	wfnode "brand-card-studio/internal/workflow/node"
	workflowport "brand-card-studio/internal/workflow/port"
	workflowprompt "brand-card-studio/internal/workflow/prompt"
	apperrors "brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// Options 智能体调用参数
type Options struct {
	Provider    string
	Temperature *float32
}

type runner struct {
	factory workflowport.ChatModelFactory
	prompts *workflowprompt.Registry
	opts    Options
}

func newRunner(factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts Options) runner {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	return runner{factory: factory, prompts: prompts, opts: opts}
}

// jsonSchema 结构化输出约束，为 nil 时按纯文本调用
type jsonSchema struct {
	name   string
	schema map[string]any
}

// generate 渲染模板并调用模型，返回原始文本
func (r runner) generate(ctx context.Context, workflow string, id workflowprompt.PromptID, vars map[string]any, js *jsonSchema) (string, error) {
	if r.factory == nil {
		return "", apperrors.ErrServiceUnavailable.WithDetail("llm factory not configured")
	}

	tpl, err := r.prompts.ChatTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to format prompt %s: %w", id, err)
	}

	provider := strings.TrimSpace(r.opts.Provider)
	ctx = llmctx.WithWorkflowProvider(ctx, workflow, provider)
	chatModel, err := r.factory.Get(ctx, provider)
	if err != nil {
		return "", apperrors.ErrServiceUnavailable.WithError(err)
	}

	outMsg, err := chatModel.Generate(ctx, msgs, r.modelOptions(js)...)
	if err != nil && js != nil && wfnode.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
			"workflow", workflow,
			"provider", provider,
			"error", err.Error(),
		)
		outMsg, err = chatModel.Generate(ctx, msgs, r.modelOptions(nil)...)
	}
	if err != nil {
		return "", apperrors.ErrLLMCallFailed.WithError(err)
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return "", apperrors.ErrLLMCallFailed.WithDetail("empty llm response")
	}
	return outMsg.Content, nil
}

func (r runner) modelOptions(js *jsonSchema) []model.Option {
	opts := make([]model.Option, 0, 2)
	if r.opts.Temperature != nil {
		opts = append(opts, model.WithTemperature(*r.opts.Temperature))
	}
	if js != nil {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   js.name,
					"strict": false,
					"schema": js.schema,
				},
			},
		}))
	}
	return opts
}

// malformed 包装解析错误，调用方据此决定降级策略
func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", workflowport.ErrMalformedOutput, what, err)
}

func stringArraySchema() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// comboVars 组合的模板变量
func comboVars(combo workflowport.Combination) map[string]any {
	vars := map[string]any{
		"brand_name":              "",
		"brand_description":       "",
		"product_image_url":       "none",
		"persona_label":           "",
		"persona_description":     "",
		"environment_label":       "",
		"environment_description": "",
		"influencer_name":         "",
		"influencer_bio":          "",
		"influencer_image_url":    "none",
	}
	if b := combo.Brand; b != nil {
		vars["brand_name"] = b.Name
		vars["brand_description"] = wfnode.TruncateByRunes(b.Description, 2000)
		if img := b.FirstProductImage(); img != "" {
			vars["product_image_url"] = img
		}
	}
	if p := combo.Persona; p != nil {
		vars["persona_label"] = p.Label
		vars["persona_description"] = p.Description
	}
	if e := combo.Environment; e != nil {
		vars["environment_label"] = e.Label
		vars["environment_description"] = e.Description
	}
	if i := combo.Influencer; i != nil {
		vars["influencer_name"] = i.Name
		vars["influencer_bio"] = i.Bio
		if i.ImageURL != "" {
			vars["influencer_image_url"] = i.ImageURL
		}
	}
	return vars
}
