package pipeline

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// ConfigStore 定义管道解析阶段对配置存储的最小依赖（port），
// 由基础设施层提供实现。按约定查无记录返回 (nil, nil) 而非错误
type ConfigStore interface {
	// GetDefaultPipeline 返回用户的默认管道配置，不存在时返回 (nil, nil)
	GetDefaultPipeline(ctx context.Context, userID string) (*entity.PipelineConfig, error)

	// GetPipelineConfig 按 ID 返回管道配置，不存在时返回 (nil, nil)
	GetPipelineConfig(ctx context.Context, pipelineID string) (*entity.PipelineConfig, error)

	// CreateDefaultPipeline 为用户创建并返回默认管道配置。
	// 并发请求可能重复创建，唯一性由存储层负责，这里不做加锁
	CreateDefaultPipeline(ctx context.Context, userID, providerID string) (*entity.PipelineConfig, error)
}

// ProviderRegistry 定义对 LLM 提供方注册表的最小依赖
type ProviderRegistry interface {
	// GetDefaultProvider 返回用户可用的默认提供方，未配置时返回 (nil, nil)
	GetDefaultProvider(ctx context.Context, userID string) (*entity.LLMProvider, error)
}

// VectorSearcher 定义检索阶段对向量索引的最小依赖
type VectorSearcher interface {
	// Search 按相似度返回 topK 个候选块，顺序由索引决定
	Search(ctx context.Context, query, collectionID string, topK int) ([]RetrievedChunk, error)
}

// Reranker 定义重排序阶段对交叉编码模型的最小依赖
type Reranker interface {
	// Rerank 对候选块重新排序并按 topK 截断，topK<=0 表示不截断
	Rerank(ctx context.Context, query string, results []RetrievedChunk, topK int) ([]RetrievedChunk, error)
}

// EntityExtractor 定义查询增强阶段对会话上下文的最小依赖
type EntityExtractor interface {
	// EntitiesFromContext 从用户消息文本中抽取实体词
	EntitiesFromContext(ctx context.Context, userText string) ([]string, error)
}
