// Package cardgen 实现卡片生成流水线：画像 × 场景 × 网红 的并发扇出
package cardgen

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// Agents 子流水线依赖的模型代理
type Agents struct {
	Query  port.QueryAgent
	Answer port.AnswerAgent
	Safety port.SafetyAgent
	Brief  port.ImageBriefAgent
}

// JobQueue 异步生成任务队列
type JobQueue interface {
	PublishCardGeneration(ctx context.Context, brandID string) (string, error)
}

// Deps 流水线依赖
type Deps struct {
	Brands       repository.BrandRepository
	Personas     repository.PersonaRepository
	Environments repository.EnvironmentRepository
	Influencers  repository.InfluencerRepository
	Cards        repository.CardRepository
	Agents       Agents
	Images       port.ImageGenerator
	Tracker      *runtrack.Tracker
}

// Pipeline 卡片生成流水线
type Pipeline struct {
	deps      Deps
	cfg       config.GenerationFeature
	imageSize string
	index     port.QueryIndex
	threshold float32
	queue     JobQueue
}

// Option 配置项
type Option func(*Pipeline)

// WithQueryIndex 启用语义去重
func WithQueryIndex(index port.QueryIndex, threshold float64) Option {
	return func(p *Pipeline) {
		p.index = index
		p.threshold = float32(threshold)
	}
}

// WithJobQueue 启用异步生成
func WithJobQueue(q JobQueue) Option {
	return func(p *Pipeline) { p.queue = q }
}

// WithImageSize 设置默认配图尺寸
func WithImageSize(size string) Option {
	return func(p *Pipeline) { p.imageSize = size }
}

// NewPipeline 创建卡片生成流水线
func NewPipeline(deps Deps, cfg config.GenerationFeature, opts ...Option) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 2
	}
	p := &Pipeline{deps: deps, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// genContext 一次运行加载的上下文
type genContext struct {
	brand        *entity.Brand
	personas     []*entity.Persona
	environments []*entity.Environment
	influencers  []*entity.Influencer
}

// Generate 为品牌生成卡片，整个调用记录为一次 card_generation 运行
//
// 调用方断开不会中断已开始的批次。
func (p *Pipeline) Generate(ctx context.Context, brandID string) (*GenerateResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx = logger.WithContext(ctx, logger.BrandIDKey, brandID)

	return runtrack.Track(ctx, p.deps.Tracker, entity.WorkflowCardGeneration, brandID,
		map[string]string{"brandId": brandID},
		func(ctx context.Context, _ string) (*GenerateResult, error) {
			return p.run(ctx, brandID)
		})
}

// GenerateAsync 投递生成任务，返回队列消息 ID
func (p *Pipeline) GenerateAsync(ctx context.Context, brandID string) (string, error) {
	if p.queue == nil {
		return "", errors.ErrServiceUnavailable.WithDetail("job queue is not configured")
	}
	brand, err := p.deps.Brands.GetByID(ctx, brandID)
	if err != nil {
		return "", errors.ErrInternalError.WithError(err)
	}
	if brand == nil {
		return "", errors.ErrBrandNotFound
	}
	id, err := p.queue.PublishCardGeneration(ctx, brandID)
	if err != nil {
		return "", errors.ErrServiceUnavailable.WithError(err)
	}
	logger.Info(ctx, "card generation enqueued", "brand_id", brandID, "message_id", id)
	return id, nil
}

func (p *Pipeline) run(ctx context.Context, brandID string) (*GenerateResult, error) {
	start := time.Now()

	if c, ok := p.deps.Images.(interface{ Configured() bool }); ok && !c.Configured() {
		return nil, errors.ErrServiceUnavailable.WithDetail("image generation api key is not configured")
	}

	gc, err := p.loadContext(ctx, brandID)
	if err != nil {
		return nil, err
	}

	combos := expand(gc)
	total := len(combos)
	if p.cfg.MaxCombinations > 0 && total > p.cfg.MaxCombinations {
		logger.Warn(ctx, "combination count exceeds cap, truncating",
			"combinations", total, "cap", p.cfg.MaxCombinations)
		combos = combos[:p.cfg.MaxCombinations]
	}

	var index port.QueryIndex
	if p.cfg.SemanticDedup {
		index = p.index
	}
	existing, err := p.deps.Cards.ListQueriesByBrand(ctx, brandID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	dedup := newDeduper(existing, index, p.threshold)

	logger.Info(ctx, "card generation started",
		"personas", len(gc.personas),
		"environments", len(gc.environments),
		"influencers", len(gc.influencers),
		"combinations", len(combos))

	col := &collector{}
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for _, combo := range combos {
		g.Go(func() error {
			o, cardID, imageFailed := p.process(ctx, combo, dedup)
			col.record(o, cardID, imageFailed)
			return nil
		})
	}
	_ = g.Wait()

	res := col.result(len(combos), total)
	logger.Info(ctx, "card generation finished",
		"generated", res.TotalGenerated,
		"skipped", res.TotalSkipped,
		"duplicates", res.TotalDuplicates,
		"failed", res.TotalFailed,
		"image_failures", res.TotalImageFailures,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (p *Pipeline) loadContext(ctx context.Context, brandID string) (*genContext, error) {
	brand, err := p.deps.Brands.GetByID(ctx, brandID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if brand == nil {
		return nil, errors.ErrBrandNotFound
	}

	personas, err := p.deps.Personas.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if len(personas) == 0 {
		return nil, errors.ErrNoPersonas
	}

	environments, err := p.deps.Environments.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if len(environments) == 0 {
		return nil, errors.ErrNoEnvironments
	}

	all, err := p.deps.Influencers.List(ctx, nil)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	influencers := make([]*entity.Influencer, 0, len(all))
	for _, inf := range all {
		if inf.Usable() {
			influencers = append(influencers, inf)
		}
	}
	if len(influencers) == 0 && p.cfg.FallbackAllInfluencers && len(all) > 0 {
		logger.Warn(ctx, "no enabled and ready influencers, falling back to all influencers",
			"influencers", len(all))
		influencers = all
	}
	if len(influencers) == 0 {
		return nil, errors.ErrNoInfluencers
	}

	return &genContext{
		brand:        brand,
		personas:     personas,
		environments: environments,
		influencers:  influencers,
	}, nil
}

// expand 按 画像 → 场景 → 网红 的嵌套顺序展开组合
func expand(gc *genContext) []port.Combination {
	combos := make([]port.Combination, 0, len(gc.personas)*len(gc.environments)*len(gc.influencers))
	for _, persona := range gc.personas {
		for _, env := range gc.environments {
			for _, inf := range gc.influencers {
				combos = append(combos, port.Combination{
					Brand:       gc.brand,
					Persona:     persona,
					Environment: env,
					Influencer:  inf,
				})
			}
		}
	}
	return combos
}
