// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/pkg/logger"
)

const pipelineConfigTTL = 5 * time.Minute

func pipelineConfigKey(pipelineID string) string {
	return fmt.Sprintf("pipeline:cfg:%s", pipelineID)
}

func defaultPipelineKey(userID string) string {
	return fmt.Sprintf("pipeline:default:%s", userID)
}

// PipelineConfigCache 管道配置的读穿透缓存。
// 每次问答都会读取管道配置，用短 TTL 缓存挡掉数据库热点；
// 写路径通过 Cache.InvalidatePipeline 主动失效
type PipelineConfigCache struct {
	inner pipeline.ConfigStore
	cache *Cache
}

// NewPipelineConfigCache 创建管道配置缓存
func NewPipelineConfigCache(inner pipeline.ConfigStore, cache *Cache) *PipelineConfigCache {
	return &PipelineConfigCache{inner: inner, cache: cache}
}

// GetPipelineConfig 按 ID 返回管道配置，优先命中缓存
func (c *PipelineConfigCache) GetPipelineConfig(ctx context.Context, pipelineID string) (*entity.PipelineConfig, error) {
	return c.load(ctx, pipelineConfigKey(pipelineID), func() (*entity.PipelineConfig, error) {
		return c.inner.GetPipelineConfig(ctx, pipelineID)
	})
}

// GetDefaultPipeline 返回用户的默认管道配置，优先命中缓存
func (c *PipelineConfigCache) GetDefaultPipeline(ctx context.Context, userID string) (*entity.PipelineConfig, error) {
	return c.load(ctx, defaultPipelineKey(userID), func() (*entity.PipelineConfig, error) {
		return c.inner.GetDefaultPipeline(ctx, userID)
	})
}

// CreateDefaultPipeline 透传创建并回填默认管道缓存
func (c *PipelineConfigCache) CreateDefaultPipeline(ctx context.Context, userID, providerID string) (*entity.PipelineConfig, error) {
	cfg, err := c.inner.CreateDefaultPipeline(ctx, userID, providerID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, defaultPipelineKey(userID), cfg, pipelineConfigTTL); err != nil {
		logger.Warn(ctx, "cache default pipeline", "user_id", userID, "error", err)
	}
	return cfg, nil
}

// load 读穿透：缓存不可用或反序列化失败时直接回源。
// (nil, nil) 的未命中结果不缓存，避免新建管道后读到空值
func (c *PipelineConfigCache) load(ctx context.Context, key string, loader func() (*entity.PipelineConfig, error)) (*entity.PipelineConfig, error) {
	data, err := c.cache.Get(ctx, key)
	if err == nil && len(data) > 0 {
		var cfg entity.PipelineConfig
		if err := json.Unmarshal(data, &cfg); err == nil {
			return &cfg, nil
		}
	}

	cfg, err := loader()
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := c.cache.Set(ctx, key, cfg, pipelineConfigTTL); err != nil {
		logger.Warn(ctx, "cache pipeline config", "key", key, "error", err)
	}
	return cfg, nil
}
