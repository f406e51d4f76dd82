// Package llm 管理 eino ChatModel 客户端
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"brand-card-studio/internal/config"
)

// EinoFactory 按服务商名称惰性创建并缓存 ChatModel
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found in LLM config (configured: %v)", name, f.providerNames())
	}
	if providerCfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q has no api_key", name)
	}

	mc := &openai.ChatModelConfig{
		APIKey:  providerCfg.APIKey,
		BaseURL: providerCfg.BaseURL,
		Model:   providerCfg.Model,
		Timeout: providerCfg.Timeout,
	}
	if providerCfg.MaxTokens > 0 {
		maxTokens := providerCfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if providerCfg.Temperature > 0 {
		temp := float32(providerCfg.Temperature)
		mc.Temperature = &temp
	}

	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func (f *EinoFactory) providerNames() []string {
	names := make([]string, 0, len(f.config.Providers))
	for n := range f.config.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
