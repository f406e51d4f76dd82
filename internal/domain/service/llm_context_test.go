package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowProviderLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, " card_query ", "")
	assert.Equal(t, "card_query", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, "", "openai")
	assert.Equal(t, "card_query", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))
}
