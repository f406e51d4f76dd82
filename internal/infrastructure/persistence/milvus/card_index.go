package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"brand-card-studio/pkg/metrics"
)

// Embedder 文本向量化
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Match 最相近的已有问题
type Match struct {
	CardID string
	Query  string
	Score  float32
}

// CardIndex 按品牌隔离的卡片问题向量索引
type CardIndex struct {
	client   *Client
	embedder Embedder
}

// NewCardIndex 创建卡片问题索引
func NewCardIndex(client *Client, embedder Embedder) *CardIndex {
	return &CardIndex{client: client, embedder: embedder}
}

// EnsureCollection 确保集合与 HNSW 索引可用（不存在则创建），不做破坏性操作
func (x *CardIndex) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.CardIndex.EnsureCollection")
	defer span.End()

	exists, err := x.client.HasCollection(ctx, CollectionCardQueries)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		name := x.client.CollectionName(CollectionCardQueries)
		if err := x.client.milvus.CreateCollection(ctx, CardQueriesSchema(name, x.embedder.Dimension()), entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, x.client.config.HNSWM, x.client.config.HNSWEfConstruction)
		if err != nil {
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := x.client.milvus.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return x.client.LoadCollection(ctx, CollectionCardQueries)
}

// Nearest 返回品牌内与 query 最相近的问题，没有时返回 nil
func (x *CardIndex) Nearest(ctx context.Context, brandID, query string) (*Match, error) {
	collName := x.client.CollectionName(CollectionCardQueries)
	ctx, span := tracer.Start(ctx, "milvus.CardIndex.Nearest",
		trace.WithAttributes(attribute.String("brand_id", brandID)))
	defer span.End()

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	start := time.Now()
	results, err := x.client.milvus.Search(ctx,
		collName,
		nil,
		fmt.Sprintf(`%s == "%s"`, fieldBrandID, brandID),
		[]string{fieldID, fieldQuery},
		[]entity.Vector{entity.FloatVector(vec)},
		fieldVector,
		entity.COSINE,
		1,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionCardQueries).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(CollectionCardQueries, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionCardQueries, "success").Inc()

	for _, result := range results {
		if result.ResultCount == 0 || len(result.Scores) == 0 {
			continue
		}
		m := &Match{Score: result.Scores[0]}
		if col, ok := result.Fields.GetColumn(fieldID).(*entity.ColumnVarChar); ok {
			m.CardID, _ = col.ValueByIdx(0)
		}
		if col, ok := result.Fields.GetColumn(fieldQuery).(*entity.ColumnVarChar); ok {
			m.Query, _ = col.ValueByIdx(0)
		}
		return m, nil
	}
	return nil, nil
}

// Similarity 返回最相近问题的相似度，没有记录时为 0
func (x *CardIndex) Similarity(ctx context.Context, brandID, query string) (float32, error) {
	m, err := x.Nearest(ctx, brandID, query)
	if err != nil || m == nil {
		return 0, err
	}
	return m.Score, nil
}

// Add 写入一条卡片问题
func (x *CardIndex) Add(ctx context.Context, cardID, brandID, query string) error {
	ctx, span := tracer.Start(ctx, "milvus.CardIndex.Add",
		trace.WithAttributes(attribute.String("card_id", cardID)))
	defer span.End()

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if r := []rune(query); len(r) > maxQueryLen/4 {
		query = string(r[:maxQueryLen/4])
	}

	_, err = x.client.milvus.Insert(ctx, x.client.CollectionName(CollectionCardQueries), "",
		entity.NewColumnVarChar(fieldID, []string{cardID}),
		entity.NewColumnFloatVector(fieldVector, len(vec), [][]float32{vec}),
		entity.NewColumnVarChar(fieldBrandID, []string{brandID}),
		entity.NewColumnVarChar(fieldQuery, []string{query}),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert card query: %w", err)
	}
	return nil
}

// Remove 删除卡片对应的向量
func (x *CardIndex) Remove(ctx context.Context, cardIDs []string) error {
	if len(cardIDs) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.CardIndex.Remove",
		trace.WithAttributes(attribute.Int("count", len(cardIDs))))
	defer span.End()

	if err := x.client.milvus.Delete(ctx, x.client.CollectionName(CollectionCardQueries), "", idInExpr(cardIDs)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete card queries: %w", err)
	}
	return nil
}

func idInExpr(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ", "))
}
