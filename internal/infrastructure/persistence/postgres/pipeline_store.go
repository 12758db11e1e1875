// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// PipelineStore 面向查询管道的配置存取实现，
// 聚合管道配置仓储与提供方仓储，满足解析阶段的依赖
type PipelineStore struct {
	configs   *PipelineConfigRepository
	providers *LLMProviderRepository
}

// NewPipelineStore 创建管道配置存取实现
func NewPipelineStore(configs *PipelineConfigRepository, providers *LLMProviderRepository) *PipelineStore {
	return &PipelineStore{configs: configs, providers: providers}
}

// GetDefaultPipeline 返回用户的默认管道配置，不存在时返回 (nil, nil)
func (s *PipelineStore) GetDefaultPipeline(ctx context.Context, userID string) (*entity.PipelineConfig, error) {
	return s.configs.GetDefaultByUser(ctx, userID)
}

// GetPipelineConfig 按 ID 返回管道配置，不存在时返回 (nil, nil)
func (s *PipelineStore) GetPipelineConfig(ctx context.Context, pipelineID string) (*entity.PipelineConfig, error) {
	return s.configs.GetByID(ctx, pipelineID)
}

// CreateDefaultPipeline 为用户创建并返回默认管道配置
func (s *PipelineStore) CreateDefaultPipeline(ctx context.Context, userID, providerID string) (*entity.PipelineConfig, error) {
	cfg := entity.NewDefaultPipelineConfig(userID, providerID)
	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultProvider 返回可用的默认提供方，未配置时返回 (nil, nil)。
// 提供方目前为全局配置，userID 预留给按用户隔离的场景
func (s *PipelineStore) GetDefaultProvider(ctx context.Context, _ string) (*entity.LLMProvider, error) {
	provider, err := s.providers.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.Usable() {
		return nil, nil
	}
	return provider, nil
}
