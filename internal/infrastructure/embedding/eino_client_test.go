package embedding

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vecs [][]float64
}

func (s stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	return s.vecs, nil
}

func TestTextEmbedder(t *testing.T) {
	e := NewTextEmbedder(stubEmbedder{vecs: [][]float64{{0.5, 0.25, 1}}}, 3)
	v, err := e.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 1}, v)

	_, err = NewTextEmbedder(stubEmbedder{vecs: [][]float64{{1, 2}}}, 3).Embed(context.Background(), "hi")
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = NewTextEmbedder(stubEmbedder{}, 3).Embed(context.Background(), "hi")
	assert.Error(t, err)
}
