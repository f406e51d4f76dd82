// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	gormlogger "gorm.io/gorm/logger"

	"brand-card-studio/internal/application/cardgen"
	"brand-card-studio/internal/application/dataset"
	"brand-card-studio/internal/application/influencer"
	"brand-card-studio/internal/application/onboarding"
	"brand-card-studio/internal/application/publishing"
	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/repository"
	infraembedding "brand-card-studio/internal/infrastructure/embedding"
	"brand-card-studio/internal/infrastructure/fetcher"
	"brand-card-studio/internal/infrastructure/imagegen"
	"brand-card-studio/internal/infrastructure/messaging"
	"brand-card-studio/internal/infrastructure/persistence/milvus"
	"brand-card-studio/internal/infrastructure/persistence/redis"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore"
	"brand-card-studio/internal/infrastructure/storage"
	"brand-card-studio/internal/interfaces/http/handler"
	"brand-card-studio/internal/interfaces/http/router"
	"brand-card-studio/internal/workflow/agent"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/internal/workflow/prompt"
	"brand-card-studio/pkg/logger"
)

// DataLayer 数据层依赖容器（bootstrap 使用）
type DataLayer struct {
	Client      *sqlstore.Client
	Influencers repository.InfluencerRepository
	Provisioner *influencer.Provisioner
}

// Worker 异步任务执行器依赖容器
type Worker struct {
	Consumer    *messaging.Consumer
	Pipeline    *cardgen.Pipeline
	Provisioner *influencer.Provisioner
}

// ProvideSQLClient 提供数据库客户端，按配置同步表结构
func ProvideSQLClient(ctx context.Context, cfg *config.Config) (*sqlstore.Client, func(), error) {
	level := gormlogger.Warn
	if cfg.Observability.Logging.Level == "debug" {
		level = gormlogger.Info
	}
	client, err := sqlstore.NewClient(&cfg.Database, sqlstore.WithLogLevel(level))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	if cfg.Database.AutoMigrate {
		if err := client.AutoMigrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端（job-worker 必需）
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 未启用或不可达时返回 nil，缓存、限流与异步任务随之关闭
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and rate limit disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideDatasetCache(client *redis.Client, cfg *config.Config) *redis.DatasetCache {
	if client == nil {
		return nil
	}
	return redis.NewDatasetCache(client, cfg.Cache.DatasetTTL)
}

// ProvideMessagingProducer 提供消息生产者，未启用 Redis Stream 时返回 nil
func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	if client == nil || !cfg.Messaging.RedisStream.Enabled {
		return nil
	}
	return messaging.NewProducer(client.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideMessagingProducerDisabled 执行器与 bootstrap 内联执行任务，不再入队
func ProvideMessagingProducerDisabled() *messaging.Producer {
	return nil
}

// ProvideConsumer 提供生成任务消费者
func ProvideConsumer(client *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamCardJobs,
		Group:         messaging.ConsumerGroup(fmt.Sprintf("%s-%s", rs.ConsumerGroupPrefix, messaging.ConsumerGroupJobWorker)),
		ConsumerName:  messaging.DefaultConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
}

// ProvideEmbedderOptional 语义去重未开启或 Embedding 不可用时返回 nil
func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) einoembedding.Embedder {
	if !cfg.Vector.Milvus.Enabled {
		return nil
	}
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, semantic dedup disabled", "error", err.Error())
		return nil
	}
	return embedder
}

func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if !cfg.Vector.Milvus.Enabled {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, semantic dedup disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideCardIndexOptional 构建卡片问题索引，集合创建失败时退化为仅精确去重
func ProvideCardIndexOptional(ctx context.Context, cfg *config.Config, client *milvus.Client, embedder einoembedding.Embedder) *milvus.CardIndex {
	if client == nil || embedder == nil {
		return nil
	}
	index := milvus.NewCardIndex(client, infraembedding.NewTextEmbedder(embedder, cfg.Embedding.Dimension))
	if err := index.EnsureCollection(ctx); err != nil {
		logger.Warn(ctx, "card index unavailable, semantic dedup disabled", "error", err.Error())
		return nil
	}
	return index
}

func ProvideImageStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func ProvideImageGenerator(cfg *config.Config, store storage.Store) *imagegen.Client {
	return imagegen.NewClient(&cfg.Image, store)
}

func ProvideFetcher(cfg *config.Config) *fetcher.Fetcher {
	return fetcher.New(&cfg.Features.Onboarding)
}

func ProvideAgentOptions(cfg *config.Config) agent.Options {
	return agent.Options{Provider: cfg.LLM.DefaultProvider}
}

// ProvideCardAgents 组装卡片生成所需的四个模型代理
func ProvideCardAgents(factory port.ChatModelFactory, prompts *prompt.Registry, opts agent.Options) cardgen.Agents {
	return cardgen.Agents{
		Query:  agent.NewQueryAgent(factory, prompts, opts),
		Answer: agent.NewAnswerAgent(factory, prompts, opts),
		Safety: agent.NewSafetyAgent(factory, prompts, opts),
		Brief:  agent.NewImageBriefAgent(factory, prompts, opts),
	}
}

func ProvideOnboardingService(
	brands repository.BrandRepository,
	personas repository.PersonaRepository,
	environments repository.EnvironmentRepository,
	tx repository.Transactor,
	f *fetcher.Fetcher,
	factory port.ChatModelFactory,
	prompts *prompt.Registry,
	opts agent.Options,
	tracker *runtrack.Tracker,
) *onboarding.Service {
	analyzer := agent.NewContentAnalyzer(factory, prompts, opts)
	return onboarding.NewService(brands, personas, environments, tx, f, analyzer, tracker)
}

// ProvideProvisioner 提供网红创建服务，启用消息队列时形象生成转为异步
func ProvideProvisioner(cfg *config.Config, repo repository.InfluencerRepository, images *imagegen.Client, tracker *runtrack.Tracker, producer *messaging.Producer) *influencer.Provisioner {
	opts := []influencer.Option{influencer.WithImageSize(cfg.Image.Size)}
	if producer != nil {
		opts = append(opts, influencer.WithQueue(producer))
	}
	return influencer.NewProvisioner(repo, images, tracker, opts...)
}

// ProvidePipeline 提供卡片生成流水线
func ProvidePipeline(
	cfg *config.Config,
	brands repository.BrandRepository,
	personas repository.PersonaRepository,
	environments repository.EnvironmentRepository,
	influencers repository.InfluencerRepository,
	cards repository.CardRepository,
	agents cardgen.Agents,
	images *imagegen.Client,
	tracker *runtrack.Tracker,
	producer *messaging.Producer,
	index *milvus.CardIndex,
) *cardgen.Pipeline {
	deps := cardgen.Deps{
		Brands:       brands,
		Personas:     personas,
		Environments: environments,
		Influencers:  influencers,
		Cards:        cards,
		Agents:       agents,
		Images:       images,
		Tracker:      tracker,
	}
	opts := []cardgen.Option{cardgen.WithImageSize(cfg.Image.Size)}
	if producer != nil {
		opts = append(opts, cardgen.WithJobQueue(producer))
	}
	if index != nil && cfg.Features.Generation.SemanticDedup {
		opts = append(opts, cardgen.WithQueryIndex(index, cfg.Vector.DedupThreshold))
	}
	return cardgen.NewPipeline(deps, cfg.Features.Generation, opts...)
}

func ProvidePublishingService(cfg *config.Config, cards repository.CardRepository, tracker *runtrack.Tracker, cache *redis.DatasetCache, index *milvus.CardIndex) *publishing.Service {
	var opts []publishing.Option
	if cache != nil {
		opts = append(opts, publishing.WithPageCache(cache))
	}
	if index != nil {
		opts = append(opts, publishing.WithQueryIndex(index))
	}
	return publishing.NewService(cards, tracker, cfg.Features.Publishing.Concurrency, opts...)
}

func ProvideRenderer(brands repository.BrandRepository, cards repository.CardRepository, influencers repository.InfluencerRepository, cache *redis.DatasetCache) *dataset.Renderer {
	if cache == nil {
		return dataset.NewRenderer(brands, cards, influencers)
	}
	return dataset.NewRenderer(brands, cards, influencers, dataset.WithCache(cache))
}

// ProvideHealthHandler 只有实际连接的可选依赖参与 readiness 探测
func ProvideHealthHandler(cfg *config.Config, db *sqlstore.Client, redisClient *redis.Client, milvusClient *milvus.Client) *handler.HealthHandler {
	optional := map[string]handler.HealthChecker{"redis": nil, "milvus": nil}
	if redisClient != nil {
		optional["redis"] = redisClient
	}
	if milvusClient != nil {
		optional["milvus"] = milvusClient
	}
	return handler.NewHealthHandler(cfg.App.Version, db, optional)
}

func ProvideBrandHandler(brands repository.BrandRepository, onboarder *onboarding.Service, cache *redis.DatasetCache) *handler.BrandHandler {
	if cache == nil {
		return handler.NewBrandHandler(brands, onboarder, nil)
	}
	return handler.NewBrandHandler(brands, onboarder, cache)
}

func ProvideCardHandler(cards repository.CardRepository, pipeline *cardgen.Pipeline, publisher *publishing.Service, cache *redis.DatasetCache) *handler.CardHandler {
	if cache == nil {
		return handler.NewCardHandler(cards, pipeline, publisher, nil)
	}
	return handler.NewCardHandler(cards, pipeline, publisher, cache)
}

// ProvideRouterHandlers 组装路由处理器，Redis 不可用时不限流
func ProvideRouterHandlers(
	health *handler.HealthHandler,
	brand *handler.BrandHandler,
	persona *handler.PersonaHandler,
	inf *handler.InfluencerHandler,
	card *handler.CardHandler,
	run *handler.RunHandler,
	ds *handler.DatasetHandler,
	redisClient *redis.Client,
) *router.Handlers {
	h := &router.Handlers{
		Health:     health,
		Brand:      brand,
		Persona:    persona,
		Influencer: inf,
		Card:       card,
		Run:        run,
		Dataset:    ds,
	}
	if redisClient != nil {
		h.RateLimiter = redis.NewRateLimiter(redisClient)
		h.RateLimitKey = redis.BuildRateLimitKey
	}
	return h
}
