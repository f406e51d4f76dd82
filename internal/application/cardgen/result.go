package cardgen

import (
	"fmt"
	"strings"
	"sync"

	"brand-card-studio/pkg/metrics"
)

// outcome 单个组合的处理结果
type outcome string

const (
	outcomeGenerated outcome = "generated"
	outcomeSkipped   outcome = "skipped"
	outcomeDuplicate outcome = "duplicate"
	outcomeFailed    outcome = "failed"
)

// GenerateResult 一次卡片生成的汇总
type GenerateResult struct {
	CardIDs            []string `json:"card_ids"`
	TotalGenerated     int      `json:"total_generated"`
	TotalSkipped       int      `json:"total_skipped"`
	TotalDuplicates    int      `json:"total_duplicates"`
	TotalFailed        int      `json:"total_failed"`
	TotalImageFailures int      `json:"total_image_failures"`
	TotalCombinations  int      `json:"total_combinations"`
	Truncated          bool     `json:"truncated,omitempty"`
	Message            string   `json:"message"`
}

// collector 并发收集组合结果，CardIDs 保持完成顺序
type collector struct {
	mu  sync.Mutex
	res GenerateResult
}

func (c *collector) record(o outcome, cardID string, imageFailed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch o {
	case outcomeGenerated:
		c.res.CardIDs = append(c.res.CardIDs, cardID)
		if imageFailed {
			c.res.TotalImageFailures++
			metrics.PipelineCombinationsTotal.WithLabelValues("image_failed").Inc()
		}
	case outcomeSkipped:
		c.res.TotalSkipped++
	case outcomeDuplicate:
		c.res.TotalDuplicates++
	case outcomeFailed:
		c.res.TotalFailed++
	}
	metrics.PipelineCombinationsTotal.WithLabelValues(string(o)).Inc()
}

func (c *collector) result(total int, truncatedFrom int) *GenerateResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.res
	if res.CardIDs == nil {
		res.CardIDs = []string{}
	}
	res.TotalGenerated = len(res.CardIDs)
	res.TotalCombinations = total
	res.Truncated = truncatedFrom > total
	res.Message = summarize(&res, truncatedFrom)
	return &res
}

func summarize(r *GenerateResult, truncatedFrom int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d of %d cards", r.TotalGenerated, r.TotalCombinations)

	var extra []string
	if r.TotalSkipped > 0 {
		extra = append(extra, fmt.Sprintf("%d skipped by safety review", r.TotalSkipped))
	}
	if r.TotalDuplicates > 0 {
		extra = append(extra, fmt.Sprintf("%d duplicates", r.TotalDuplicates))
	}
	if r.TotalFailed > 0 {
		extra = append(extra, fmt.Sprintf("%d failed", r.TotalFailed))
	}
	if r.TotalImageFailures > 0 {
		extra = append(extra, fmt.Sprintf("%d without image", r.TotalImageFailures))
	}
	if len(extra) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(extra, ", "))
	}
	if r.Truncated {
		fmt.Fprintf(&b, "; combinations capped at %d of %d", r.TotalCombinations, truncatedFrom)
	}
	return b.String()
}
