package pipeline

import (
	"context"
	"fmt"
	"strings"

	"knowledge-qa-api/pkg/metrics"
)

// defaultRetrievalTopK 未配置时的检索候选数量兜底值
const defaultRetrievalTopK = 5

// RetrievalStage 检索阶段：以增强后的查询检索向量索引，填充 QueryResults。
// 缺少 CollectionID 或 RewrittenQuery 视为阶段失败而非静默跳过；
// 检索失败时 QueryResults 保持未设置，下游可区分"未检索"与"检索为空"
type RetrievalStage struct {
	searcher VectorSearcher
	topK     int
}

// NewRetrievalStage 创建检索阶段，topK 为系统默认候选数量
func NewRetrievalStage(searcher VectorSearcher, topK int) *RetrievalStage {
	if topK <= 0 {
		topK = defaultRetrievalTopK
	}
	return &RetrievalStage{searcher: searcher, topK: topK}
}

// Name 实现 Stage 接口
func (s *RetrievalStage) Name() string {
	return StageRetrieval
}

// Execute 实现 Stage 接口。结果顺序与索引返回一致，阶段内不再排序
func (s *RetrievalStage) Execute(ctx context.Context, rc *RequestContext) Outcome {
	if strings.TrimSpace(rc.CollectionID) == "" {
		return fail("collection id is required")
	}
	query := strings.TrimSpace(rc.RewrittenQuery)
	if query == "" {
		return fail("rewritten query is required")
	}
	if s.searcher == nil {
		return fail("vector searcher is not configured")
	}

	topK := rc.Options.TopK
	if topK <= 0 {
		topK = s.topK
	}

	results, err := s.searcher.Search(ctx, query, rc.CollectionID, topK)
	if err != nil {
		return fail(fmt.Sprintf("vector search: %v", err))
	}
	if results == nil {
		// 命中为空也要可区分于"未检索"
		results = []RetrievedChunk{}
	}

	rc.QueryResults = results
	metrics.RetrievedChunks.Observe(float64(len(results)))

	return succeed(map[string]any{
		"count": len(results),
		"top_k": topK,
	})
}
