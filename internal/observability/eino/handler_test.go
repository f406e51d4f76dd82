package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	llmctx "brand-card-studio/internal/domain/service"
	"brand-card-studio/pkg/metrics"
)

func TestChatModelCallbackHandlerCounts(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := llmctx.WithWorkflowProvider(context.Background(), "cb_test", "fake")

	success := metrics.LLMCallTotal.WithLabelValues("cb_test", "fake", "m1", "success")
	failure := metrics.LLMCallTotal.WithLabelValues("cb_test", "fake", "m1", "error")
	prompt := metrics.LLMTokensUsed.WithLabelValues("cb_test", "fake", "m1", "prompt")
	beforeOK, beforeErr, beforePrompt := testutil.ToFloat64(success), testutil.ToFloat64(failure), testutil.ToFloat64(prompt)

	in := &model.CallbackInput{Config: &model.Config{Model: "m1"}}
	runCtx := h.OnStart(ctx, nil, in)
	h.OnEnd(runCtx, nil, &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	})

	runCtx = h.OnStart(ctx, nil, in)
	h.OnError(runCtx, nil, errors.New("boom"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(failure))
	assert.Equal(t, beforePrompt+12, testutil.ToFloat64(prompt))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
