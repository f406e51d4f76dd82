package cardgen

import (
	"context"
	"sync"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/logger"
)

// deduper 一次运行内的问题去重：先按归一化文本，再可选按语义相似度
type deduper struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	index     port.QueryIndex
	threshold float32
}

func newDeduper(existing []string, index port.QueryIndex, threshold float32) *deduper {
	d := &deduper{
		seen:      make(map[string]struct{}, len(existing)),
		index:     index,
		threshold: threshold,
	}
	for _, q := range existing {
		if n := entity.NormalizeQuery(q); n != "" {
			d.seen[n] = struct{}{}
		}
	}
	return d
}

// claim 问题未出现过时占用并返回 true
func (d *deduper) claim(ctx context.Context, brandID, query string) bool {
	norm := entity.NormalizeQuery(query)

	d.mu.Lock()
	if _, dup := d.seen[norm]; dup {
		d.mu.Unlock()
		return false
	}
	d.seen[norm] = struct{}{}
	d.mu.Unlock()

	if d.index == nil {
		return true
	}
	score, err := d.index.Similarity(ctx, brandID, query)
	if err != nil {
		// 语义索引不可用时只做文本去重
		logger.Warn(ctx, "semantic dedup lookup failed", "error", err.Error())
		return true
	}
	if score > d.threshold {
		logger.Info(ctx, "query skipped as semantic duplicate", "score", score)
		return false
	}
	return true
}

// release 组合未落库时释放占用，使同一问题可由后续组合生成
func (d *deduper) release(query string) {
	norm := entity.NormalizeQuery(query)
	d.mu.Lock()
	delete(d.seen, norm)
	d.mu.Unlock()
}

// remember 卡片落库后写入语义索引，供后续组合比对
func (d *deduper) remember(ctx context.Context, cardID, brandID, query string) {
	if d.index == nil {
		return
	}
	if err := d.index.Add(ctx, cardID, brandID, query); err != nil {
		logger.Warn(ctx, "failed to index card query", "card_id", cardID, "error", err.Error())
	}
}
