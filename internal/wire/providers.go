// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/application/indexing"
	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/application/query"
	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/repository"
	infraembedding "knowledge-qa-api/internal/infrastructure/embedding"
	"knowledge-qa-api/internal/infrastructure/llm"
	"knowledge-qa-api/internal/infrastructure/messaging"
	"knowledge-qa-api/internal/infrastructure/persistence/milvus"
	"knowledge-qa-api/internal/infrastructure/persistence/postgres"
	"knowledge-qa-api/internal/infrastructure/persistence/redis"
	"knowledge-qa-api/internal/infrastructure/rerank"
	grpcserver "knowledge-qa-api/internal/interfaces/grpc/server"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/internal/interfaces/http/router"
)

// App API 服务的顶层依赖容器
type App struct {
	Router     *router.Router
	GRPCHealth *grpcserver.HealthService
}

// Worker 索引 worker 的依赖容器
type Worker struct {
	Indexing *indexing.Service
	Consumer *messaging.Consumer
	Producer *messaging.Producer
}

// Bootstrap 初始化工具的依赖容器
type Bootstrap struct {
	PgClient     *postgres.Client
	UserRepo     *postgres.UserRepository
	ProviderRepo *postgres.LLMProviderRepository
	VectorRepo   *milvus.Repository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供 Milvus 客户端
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusRepository 提供向量仓储，维度取自 Embedding 配置
func ProvideMilvusRepository(client *milvus.Client, cfg *config.Config) *milvus.Repository {
	return milvus.NewRepository(client, cfg.Embedding.Dimension)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideIndexConsumer 提供索引流消费者，消费者名带主机与进程标识便于定位
func ProvideIndexConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamDocumentIndex,
		Group:         messaging.ConsumerGroupIndexWorker,
		ConsumerName:  hostnameConsumerName(),
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

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "index-worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideEmbedder 提供 Embedder
func ProvideEmbedder(ctx context.Context, cfg *config.Config) (einoembedding.Embedder, error) {
	return infraembedding.NewEmbedder(ctx, &cfg.Embedding)
}

// ProvideRerankClient 提供重排序客户端
func ProvideRerankClient(cfg *config.Config) *rerank.Client {
	return rerank.NewClient(&cfg.Rerank)
}

// ProvidePipelineConfigStore 提供带 Redis 读穿透缓存的管道配置存取
func ProvidePipelineConfigStore(store *postgres.PipelineStore, cache *redis.Cache) pipeline.ConfigStore {
	return redis.NewPipelineConfigCache(store, cache)
}

// ProvideEntityExtractor 提供查询增强用的实体提取器。
// 功能开关关闭时返回 nil，增强阶段会直接使用原始问题
func ProvideEntityExtractor(cfg *config.Config, factory *llm.EinoFactory) pipeline.EntityExtractor {
	if !cfg.Features.Query.EnhancementLLM {
		return nil
	}
	return conversation.NewLLMEntityExtractor(factory, cfg.LLM.DefaultProvider)
}

// ProvideRetrievalStage 提供检索阶段
func ProvideRetrievalStage(cfg *config.Config, searcher pipeline.VectorSearcher) *pipeline.RetrievalStage {
	return pipeline.NewRetrievalStage(searcher, cfg.Features.Query.DefaultTopK)
}

// ProvideRerankingStage 提供重排序阶段
func ProvideRerankingStage(cfg *config.Config, reranker pipeline.Reranker) *pipeline.RerankingStage {
	return pipeline.NewRerankingStage(reranker, cfg.Rerank.Enabled)
}

// ProvideExecutor 提供管道执行器，阶段顺序固定：
// 解析 → 查询增强 → 检索 → 重排序
func ProvideExecutor(
	resolution *pipeline.ResolutionStage,
	enhancement *pipeline.EnhancementStage,
	retrieval *pipeline.RetrievalStage,
	reranking *pipeline.RerankingStage,
) *pipeline.Executor {
	return pipeline.NewExecutor(resolution, enhancement, retrieval, reranking)
}

// ProvideQueryService 提供问答服务并套用功能配置
func ProvideQueryService(
	cfg *config.Config,
	executor *pipeline.Executor,
	store pipeline.ConfigStore,
	providers repository.LLMProviderRepository,
	collections repository.CollectionRepository,
	conversations *conversation.Service,
	factory conversation.ChatModelFactory,
) *query.Service {
	svc := query.NewService(executor, store, providers, collections, conversations, factory)
	q := cfg.Features.Query
	svc.SetLimits(q.HistoryTurns, q.MaxPromptChunks, q.PromptChunkRunes)
	return svc
}

// ProvideIndexer 提供索引器并套用切分配置
func ProvideIndexer(cfg *config.Config, embedder einoembedding.Embedder, chunks *milvus.ChunkStoreAdapter) *indexing.Indexer {
	idx := indexing.NewIndexer(embedder, chunks, cfg.Embedding.BatchSize, cfg.Features.Indexing.EmbedParallelism)
	idx.SetChunking(cfg.Features.Indexing.ChunkSizeRunes, cfg.Features.Indexing.ChunkOverlapRunes)
	return idx
}

// ProvideJWTConfig 提供 JWT 配置
func ProvideJWTConfig(cfg *config.Config) config.JWTConfig {
	return cfg.Security.JWT
}

// ProvideAuthConfig 提供认证配置，注册登录等公开端点跳过认证
func ProvideAuthConfig(cfg *config.Config) middleware.AuthConfig {
	skip := append([]string{}, middleware.DefaultSkipPaths...)
	skip = append(skip, "/api/v1/auth")
	return middleware.AuthConfig{
		Secret:    cfg.Security.JWT.Secret,
		Issuer:    cfg.Security.JWT.Issuer,
		SkipPaths: skip,
		Enabled:   true,
	}
}
