// Package publishing 实现卡片的批量发布、撤回与删除
package publishing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

// InvalidReason 不可发布的原因
type InvalidReason string

const (
	ReasonNotFound    InvalidReason = "not_found"
	ReasonWrongStatus InvalidReason = "wrong_status"
)

// Invalid 一张不可发布的卡片
type Invalid struct {
	CardID        string            `json:"card_id"`
	Reason        InvalidReason     `json:"reason"`
	CurrentStatus entity.CardStatus `json:"current_status,omitempty"`
}

// PublishResult 发布结果
type PublishResult struct {
	PublishedCount   int       `json:"published_count"`
	FailedCount      int       `json:"failed_count"`
	InvalidCount     int       `json:"invalid_count"`
	PublishedCardIDs []string  `json:"published_card_ids"`
	Invalid          []Invalid `json:"invalid"`
	Message          string    `json:"message"`
}

// BulkResult 撤回或删除结果
type BulkResult struct {
	AffectedCount int64  `json:"affected_count"`
	Message       string `json:"message"`
}

// PageCache 数据集页面缓存
type PageCache interface {
	Invalidate(ctx context.Context, brandIDs ...string) error
}

// Service 发布服务
type Service struct {
	cards       repository.CardRepository
	tracker     *runtrack.Tracker
	concurrency int
	cache       PageCache
	index       port.QueryIndex
	now         func() time.Time
}

// Option 配置项
type Option func(*Service)

// WithPageCache 变更后失效数据集页面缓存
func WithPageCache(c PageCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithQueryIndex 删除卡片时同步删除语义索引
func WithQueryIndex(index port.QueryIndex) Option {
	return func(s *Service) { s.index = index }
}

// NewService 创建发布服务
func NewService(cards repository.CardRepository, tracker *runtrack.Tracker, concurrency int, opts ...Option) *Service {
	if concurrency < 1 {
		concurrency = 5
	}
	s := &Service{
		cards:       cards,
		tracker:     tracker,
		concurrency: concurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish 发布草稿卡片；不存在或非草稿的卡片记为 invalid，写入失败记为 failed
func (s *Service) Publish(ctx context.Context, cardIDs []string) (*PublishResult, error) {
	ids := uniqueIDs(cardIDs)
	if len(ids) == 0 {
		return nil, errors.ErrInvalidParam.WithDetail("card_ids is required")
	}

	return runtrack.Track(ctx, s.tracker, entity.WorkflowCardPublish, "", map[string]any{"cardIds": ids},
		func(ctx context.Context, _ string) (*PublishResult, error) {
			return s.publish(ctx, ids)
		})
}

func (s *Service) publish(ctx context.Context, ids []string) (*PublishResult, error) {
	existing, err := s.cards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	byID := make(map[string]*entity.Card, len(existing))
	for _, c := range existing {
		byID[c.ID] = c
	}

	res := &PublishResult{PublishedCardIDs: []string{}, Invalid: []Invalid{}}
	var valid []*entity.Card
	for _, id := range ids {
		card, ok := byID[id]
		switch {
		case !ok:
			res.Invalid = append(res.Invalid, Invalid{CardID: id, Reason: ReasonNotFound})
		case card.Status != entity.CardStatusDraft:
			res.Invalid = append(res.Invalid, Invalid{CardID: id, Reason: ReasonWrongStatus, CurrentStatus: card.Status})
		default:
			valid = append(valid, card)
		}
	}

	var mu sync.Mutex
	brands := map[string]struct{}{}
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, card := range valid {
		g.Go(func() error {
			ok, err := s.cards.PublishIfDraft(ctx, card.ID, s.now())

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Error(ctx, "failed to publish card", err, "card_id", card.ID)
				res.FailedCount++
				metrics.PublishOutcomesTotal.WithLabelValues("failed").Inc()
			case !ok:
				// 校验之后被其他请求改变了状态
				res.Invalid = append(res.Invalid, Invalid{CardID: card.ID, Reason: ReasonWrongStatus})
			default:
				res.PublishedCardIDs = append(res.PublishedCardIDs, card.ID)
				brands[card.BrandID] = struct{}{}
				metrics.PublishOutcomesTotal.WithLabelValues("published").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	res.PublishedCount = len(res.PublishedCardIDs)
	res.InvalidCount = len(res.Invalid)
	metrics.PublishOutcomesTotal.WithLabelValues("invalid").Add(float64(res.InvalidCount))
	res.Message = fmt.Sprintf("Published %d cards (%d invalid, %d failed)", res.PublishedCount, res.InvalidCount, res.FailedCount)

	s.invalidate(ctx, slices.Sorted(maps.Keys(brands)))
	logger.Info(ctx, "cards published",
		"published", res.PublishedCount,
		"invalid", res.InvalidCount,
		"failed", res.FailedCount)
	return res, nil
}

// Unpublish 无条件重置为草稿，重复调用无副作用
func (s *Service) Unpublish(ctx context.Context, cardIDs []string) (*BulkResult, error) {
	ids := uniqueIDs(cardIDs)
	if len(ids) == 0 {
		return nil, errors.ErrInvalidParam.WithDetail("card_ids is required")
	}

	return runtrack.Track(ctx, s.tracker, entity.WorkflowCardUnpublish, "", map[string]any{"cardIds": ids},
		func(ctx context.Context, _ string) (*BulkResult, error) {
			brands, err := s.brandsOf(ctx, ids)
			if err != nil {
				return nil, err
			}
			n, err := s.cards.UnpublishByIDs(ctx, ids)
			if err != nil {
				return nil, errors.ErrInternalError.WithError(err)
			}
			s.invalidate(ctx, brands)
			return &BulkResult{AffectedCount: n, Message: fmt.Sprintf("Unpublished %d cards", n)}, nil
		})
}

// Delete 无条件硬删除
func (s *Service) Delete(ctx context.Context, cardIDs []string) (*BulkResult, error) {
	ids := uniqueIDs(cardIDs)
	if len(ids) == 0 {
		return nil, errors.ErrInvalidParam.WithDetail("card_ids is required")
	}

	return runtrack.Track(ctx, s.tracker, entity.WorkflowCardDelete, "", map[string]any{"cardIds": ids},
		func(ctx context.Context, _ string) (*BulkResult, error) {
			brands, err := s.brandsOf(ctx, ids)
			if err != nil {
				return nil, err
			}
			n, err := s.cards.DeleteByIDs(ctx, ids)
			if err != nil {
				return nil, errors.ErrInternalError.WithError(err)
			}
			if s.index != nil {
				if err := s.index.Remove(ctx, ids); err != nil {
					logger.Warn(ctx, "failed to remove card queries from index", "error", err.Error())
				}
			}
			s.invalidate(ctx, brands)
			return &BulkResult{AffectedCount: n, Message: fmt.Sprintf("Deleted %d cards", n)}, nil
		})
}

func (s *Service) brandsOf(ctx context.Context, ids []string) ([]string, error) {
	cards, err := s.cards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	set := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		set[c.BrandID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// invalidate 缓存失效失败只记录日志
func (s *Service) invalidate(ctx context.Context, brandIDs []string) {
	if s.cache == nil || len(brandIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, brandIDs...); err != nil {
		logger.Warn(ctx, "failed to invalidate dataset cache", "brands", brandIDs, "error", err.Error())
	}
}

// uniqueIDs 去掉空白与重复 ID，保持原顺序
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
