package pipeline

import (
	"context"
	"fmt"
	"strings"

	"knowledge-qa-api/pkg/logger"
)

// 解析来源，记录在阶段元数据中
const (
	resolutionSourceExplicit    = "explicit"
	resolutionSourceUserDefault = "user_default"
	resolutionSourceAutoCreated = "auto_created"
)

// ResolutionStage 管道解析阶段：确保 PipelineID 指向一条存在的管道配置。
// 解析优先级为 显式指定 > 用户默认 > 按默认提供方自动创建；
// 没有任何可用提供方时为终态配置错误，不重试
type ResolutionStage struct {
	store    ConfigStore
	registry ProviderRegistry
}

// NewResolutionStage 创建管道解析阶段
func NewResolutionStage(store ConfigStore, registry ProviderRegistry) *ResolutionStage {
	return &ResolutionStage{store: store, registry: registry}
}

// Name 实现 Stage 接口
func (s *ResolutionStage) Name() string {
	return StageResolution
}

// Execute 实现 Stage 接口。解析成功后 PipelineID 才会写入上下文，
// 任何失败都保持 PipelineID 为空
func (s *ResolutionStage) Execute(ctx context.Context, rc *RequestContext) Outcome {
	pipelineID := strings.TrimSpace(rc.Options.PipelineID)
	source := resolutionSourceExplicit

	if pipelineID == "" {
		resolved, src, outcome := s.resolveDefault(ctx, rc.UserID)
		if resolved == "" {
			return outcome
		}
		pipelineID = resolved
		source = src
	}

	// 统一校验：自动创建的配置同样要求回读成功
	cfg, err := s.store.GetPipelineConfig(ctx, pipelineID)
	if err != nil {
		return fail(fmt.Sprintf("fetch pipeline config %s: %v", pipelineID, err))
	}
	if cfg == nil {
		return fail(fmt.Sprintf("pipeline not found: %s", pipelineID))
	}

	rc.PipelineID = cfg.ID
	return succeed(map[string]any{
		"pipeline_id": cfg.ID,
		"source":      source,
	})
}

// resolveDefault 返回用户默认管道 ID，不存在时基于默认提供方自动创建。
// 返回空 ID 时第三个返回值为失败结果
func (s *ResolutionStage) resolveDefault(ctx context.Context, userID string) (string, string, Outcome) {
	cfg, err := s.store.GetDefaultPipeline(ctx, userID)
	if err != nil {
		return "", "", fail(fmt.Sprintf("fetch default pipeline: %v", err))
	}
	if cfg != nil {
		return cfg.ID, resolutionSourceUserDefault, Outcome{}
	}

	provider, err := s.registry.GetDefaultProvider(ctx, userID)
	if err != nil {
		return "", "", fail(fmt.Sprintf("fetch default provider: %v", err))
	}
	if provider == nil {
		return "", "", fail("no LLM provider available")
	}

	created, err := s.store.CreateDefaultPipeline(ctx, userID, provider.ID)
	if err != nil {
		return "", "", fail(fmt.Sprintf("create default pipeline: %v", err))
	}

	logger.Info(ctx, "created default pipeline",
		"pipeline_id", created.ID,
		"provider_id", provider.ID,
	)
	return created.ID, resolutionSourceAutoCreated, Outcome{}
}
