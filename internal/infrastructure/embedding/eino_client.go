// Package embedding 提供文本向量化能力
package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"brand-card-studio/internal/config"
)

// NewEinoEmbedder 创建基于 Eino 的 Embedder
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api_key is required")
	}

	ec := &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	}
	if cfg.Dimension > 0 {
		dim := cfg.Dimension
		ec.Dimensions = &dim
	}

	embedder, err := openai.NewEmbedder(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}
	return embedder, nil
}

// TextEmbedder 将单条文本转为 float32 向量，供 Milvus 写入与检索
type TextEmbedder struct {
	embedder  embedding.Embedder
	dimension int
}

// NewTextEmbedder 包装 eino Embedder
func NewTextEmbedder(embedder embedding.Embedder, dimension int) *TextEmbedder {
	return &TextEmbedder{embedder: embedder, dimension: dimension}
}

// Dimension 向量维度
func (e *TextEmbedder) Dimension() int {
	return e.dimension
}

// Embed 向量化单条文本
func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 input", len(vecs))
	}
	if e.dimension > 0 && len(vecs[0]) != e.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vecs[0]), e.dimension)
	}

	out := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		out[i] = float32(v)
	}
	return out, nil
}
