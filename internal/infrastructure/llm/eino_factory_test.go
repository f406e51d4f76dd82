package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/config"
)

func TestEinoFactory(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"openai":  {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini", Timeout: time.Second},
			"nokey":   {Model: "x"},
		},
	}}
	f := NewEinoFactory(cfg)
	ctx := context.Background()

	m1, err := f.Default(ctx)
	require.NoError(t, err)
	m2, err := f.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	_, err = f.Get(ctx, "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Get(ctx, "nokey")
	assert.ErrorContains(t, err, "api_key")
}
