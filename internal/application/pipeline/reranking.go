package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// RerankMethod 重排序实现方式，记录在阶段元数据中
const RerankMethod = "cross_encoder"

// RerankingStage 重排序阶段：用交叉编码模型对检索结果重新排序并截断。
// 进程级开关关闭、请求级关闭或未配置重排序方时整个阶段为无操作：
// 返回成功、不触碰 QueryResults、不写任何元数据。
// 启用时要求 RewrittenQuery 与 QueryResults 均已就绪
type RerankingStage struct {
	reranker Reranker
	enabled  bool
}

// NewRerankingStage 创建重排序阶段，enabled 为进程级开关
func NewRerankingStage(reranker Reranker, enabled bool) *RerankingStage {
	return &RerankingStage{reranker: reranker, enabled: enabled}
}

// Name 实现 Stage 接口
func (s *RerankingStage) Name() string {
	return StageReranking
}

// Execute 实现 Stage 接口。成功重排序后 len(QueryResults) 不增长
func (s *RerankingStage) Execute(ctx context.Context, rc *RequestContext) Outcome {
	if !s.enabled || rc.Options.DisableRerank || s.reranker == nil {
		return succeed(nil)
	}

	if strings.TrimSpace(rc.RewrittenQuery) == "" {
		return fail("rewritten query is required")
	}
	if rc.QueryResults == nil {
		return fail("query results are required")
	}

	original := len(rc.QueryResults)
	if original == 0 {
		return succeed(map[string]any{
			"original_count": 0,
			"reranked_count": 0,
			"method":         RerankMethod,
		})
	}

	reranked, err := s.reranker.Rerank(ctx, rc.RewrittenQuery, rc.QueryResults, rc.Options.TopKRerank)
	if err != nil {
		return fail(fmt.Sprintf("rerank: %v", err))
	}
	if len(reranked) > original {
		return fail(fmt.Sprintf("reranker returned %d results for %d candidates", len(reranked), original))
	}

	rc.QueryResults = reranked
	return succeed(map[string]any{
		"original_count": original,
		"reranked_count": len(reranked),
		"method":         RerankMethod,
	})
}
