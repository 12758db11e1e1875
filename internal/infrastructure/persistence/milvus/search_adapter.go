package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/pkg/metrics"
)

// SearchAdapter 组合 embedding 模型与向量仓储，实现检索阶段的 VectorSearcher。
// 查询文本在这里向量化，检索阶段只感知文本与结果
type SearchAdapter struct {
	repo     *Repository
	embedder embedding.Embedder
}

func NewSearchAdapter(repo *Repository, embedder embedding.Embedder) *SearchAdapter {
	return &SearchAdapter{repo: repo, embedder: embedder}
}

var _ pipeline.VectorSearcher = (*SearchAdapter)(nil)

func (a *SearchAdapter) Search(ctx context.Context, query, collectionID string, topK int) ([]pipeline.RetrievedChunk, error) {
	if a == nil || a.repo == nil {
		return nil, fmt.Errorf("vector search not configured")
	}
	if a.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	vectors, err := a.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}

	queryVector := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		queryVector[i] = float32(v)
	}

	start := time.Now()
	out, err := a.repo.SearchChunks(ctx, &SearchParams{
		CollectionID: collectionID,
		QueryVector:  queryVector,
		TopK:         topK,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.MilvusSearchDuration.WithLabelValues(CollectionDocumentChunks).Observe(time.Since(start).Seconds())
	metrics.MilvusSearchTotal.WithLabelValues(CollectionDocumentChunks, status).Inc()
	if err != nil {
		return nil, err
	}

	chunks := make([]pipeline.RetrievedChunk, 0, len(out))
	for i := range out {
		r := out[i]
		if r == nil {
			continue
		}
		chunks = append(chunks, pipeline.RetrievedChunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			ChunkIndex: int(r.ChunkIndex),
			Text:       r.TextContent,
			Score:      r.Score,
		})
	}
	return chunks, nil
}
