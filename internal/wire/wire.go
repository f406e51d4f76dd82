//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"brand-card-studio/internal/application/dataset"
	"brand-card-studio/internal/application/influencer"
	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/infrastructure/llm"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore"
	"brand-card-studio/internal/interfaces/http/handler"
	"brand-card-studio/internal/interfaces/http/router"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/internal/workflow/prompt"
)

// InitializeDataLayer 仅初始化数据库与网红创建服务（用于 bootstrap）
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	wire.Build(
		RepoSet,
		ImageSet,
		ProvideMessagingProducerDisabled,
		runtrack.NewTracker,
		ProvideProvisioner,
		wire.Struct(new(DataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化异步任务执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		ImageSet,
		AgentSet,
		ProvideRedisClient,
		ProvideMessagingProducerDisabled,
		ProvideConsumer,
		VectorSet,
		runtrack.NewTracker,
		ProvideProvisioner,
		ProvidePipeline,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		VectorSet,
		ImageSet,
		AgentSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	ProvideSQLClient,
	sqlstore.NewTxManager,
	sqlstore.NewBrandRepository,
	sqlstore.NewPersonaRepository,
	sqlstore.NewEnvironmentRepository,
	sqlstore.NewInfluencerRepository,
	sqlstore.NewCardRepository,
	sqlstore.NewWorkflowRunRepository,
	wire.Bind(new(repository.Transactor), new(*sqlstore.TxManager)),
	wire.Bind(new(repository.BrandRepository), new(*sqlstore.BrandRepository)),
	wire.Bind(new(repository.PersonaRepository), new(*sqlstore.PersonaRepository)),
	wire.Bind(new(repository.EnvironmentRepository), new(*sqlstore.EnvironmentRepository)),
	wire.Bind(new(repository.InfluencerRepository), new(*sqlstore.InfluencerRepository)),
	wire.Bind(new(repository.CardRepository), new(*sqlstore.CardRepository)),
	wire.Bind(new(repository.WorkflowRunRepository), new(*sqlstore.WorkflowRunRepository)),
)

// RedisSet API 网关可选 Redis（不可达时不阻塞启动）
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideDatasetCache,
	ProvideMessagingProducer,
)

// VectorSet 可选的语义去重索引
var VectorSet = wire.NewSet(
	ProvideEmbedderOptional,
	ProvideMilvusClientOptional,
	ProvideCardIndexOptional,
)

// ImageSet 图片存储与生成
var ImageSet = wire.NewSet(
	ProvideImageStore,
	ProvideImageGenerator,
)

// AgentSet 模型代理
var AgentSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	prompt.NewRegistry,
	ProvideAgentOptions,
	ProvideCardAgents,
)

// ServiceSet 应用服务
var ServiceSet = wire.NewSet(
	runtrack.NewTracker,
	ProvideFetcher,
	ProvideOnboardingService,
	ProvideProvisioner,
	ProvidePipeline,
	ProvidePublishingService,
	ProvideRenderer,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideBrandHandler,
	handler.NewPersonaHandler,
	handler.NewInfluencerHandler,
	wire.Bind(new(handler.InfluencerProvisioner), new(*influencer.Provisioner)),
	ProvideCardHandler,
	handler.NewRunHandler,
	handler.NewDatasetHandler,
	wire.Bind(new(handler.DatasetRenderer), new(*dataset.Renderer)),
	ProvideRouterHandlers,
	router.New,
)
