//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/application/indexing"
	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/infrastructure/llm"
	"knowledge-qa-api/internal/infrastructure/persistence/milvus"
	"knowledge-qa-api/internal/infrastructure/persistence/postgres"
	"knowledge-qa-api/internal/infrastructure/persistence/redis"
	"knowledge-qa-api/internal/infrastructure/rerank"
	grpcserver "knowledge-qa-api/internal/interfaces/grpc/server"
	"knowledge-qa-api/internal/interfaces/http/handler"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 服务：HTTP 路由器与 gRPC 健康服务
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		MilvusSet,
		EmbeddingSet,
		PipelineSet,
		QuerySet,
		RouterSet,
		grpcserver.NewHealthService,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化索引 worker：消费者、生产者与索引服务
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewDocumentRepository,
		postgres.NewCollectionRepository,
		wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
		wire.Bind(new(repository.CollectionRepository), new(*postgres.CollectionRepository)),
		ProvideRedisClient,
		MessagingSet,
		ProvideIndexConsumer,
		MilvusSet,
		milvus.NewChunkStoreAdapter,
		EmbeddingSet,
		ProvideIndexer,
		indexing.NewService,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化建表与种子数据所需的最小依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewUserRepository,
		postgres.NewLLMProviderRepository,
		MilvusSet,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewCollectionRepository,
	postgres.NewDocumentRepository,
	postgres.NewConversationSessionRepository,
	postgres.NewConversationTurnRepository,
	postgres.NewPipelineConfigRepository,
	postgres.NewLLMProviderRepository,
	postgres.NewPipelineStore,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.CollectionRepository), new(*postgres.CollectionRepository)),
	wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
	wire.Bind(new(repository.ConversationSessionRepository), new(*postgres.ConversationSessionRepository)),
	wire.Bind(new(repository.ConversationTurnRepository), new(*postgres.ConversationTurnRepository)),
	wire.Bind(new(repository.PipelineConfigRepository), new(*postgres.PipelineConfigRepository)),
	wire.Bind(new(repository.LLMProviderRepository), new(*postgres.LLMProviderRepository)),
	wire.Bind(new(pipeline.ProviderRegistry), new(*postgres.PipelineStore)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvidePipelineConfigStore,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// MilvusSet Milvus 提供者集合
var MilvusSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideMilvusRepository,
)

// EmbeddingSet Embedding 提供者集合
var EmbeddingSet = wire.NewSet(
	ProvideEmbedder,
)

// PipelineSet 查询管道阶段与执行器
var PipelineSet = wire.NewSet(
	milvus.NewSearchAdapter,
	ProvideRerankClient,
	ProvideEntityExtractor,
	pipeline.NewResolutionStage,
	pipeline.NewEnhancementStage,
	ProvideRetrievalStage,
	ProvideRerankingStage,
	ProvideExecutor,
	wire.Bind(new(pipeline.VectorSearcher), new(*milvus.SearchAdapter)),
	wire.Bind(new(pipeline.Reranker), new(*rerank.Client)),
)

// QuerySet 问答与会话服务
var QuerySet = wire.NewSet(
	llm.NewEinoFactory,
	conversation.NewService,
	ProvideQueryService,
	wire.Bind(new(conversation.ChatModelFactory), new(*llm.EinoFactory)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideJWTConfig,
	ProvideAuthConfig,
	handler.NewHealthHandler,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewCollectionHandler,
	handler.NewDocumentHandler,
	handler.NewConversationHandler,
	handler.NewQueryHandler,
	handler.NewPipelineHandler,
	handler.NewProviderHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
