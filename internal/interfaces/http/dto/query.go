// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/application/query"
)

// AskRequest 问答请求
type AskRequest struct {
	Question     string `json:"question" binding:"required"`
	CollectionID string `json:"collection_id" binding:"required,uuid"`
	SessionID    string `json:"session_id,omitempty" binding:"omitempty,uuid"`
	PipelineID   string `json:"pipeline_id,omitempty" binding:"omitempty,uuid"`

	// TopK/TopKRerank 为 0 时使用管道配置或系统默认值
	TopK          int  `json:"top_k,omitempty" binding:"omitempty,min=1,max=100"`
	TopKRerank    int  `json:"top_k_rerank,omitempty" binding:"omitempty,min=1,max=100"`
	DisableRerank bool `json:"disable_rerank,omitempty"`
}

// ToAskRequest 转换为应用层请求
func (r *AskRequest) ToAskRequest(userID string) *query.AskRequest {
	return &query.AskRequest{
		Question:      r.Question,
		CollectionID:  r.CollectionID,
		UserID:        userID,
		SessionID:     r.SessionID,
		PipelineID:    r.PipelineID,
		TopK:          r.TopK,
		TopKRerank:    r.TopKRerank,
		DisableRerank: r.DisableRerank,
	}
}

// ChunkDTO 检索片段
type ChunkDTO struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// QueryResponse 问答响应
type QueryResponse struct {
	Answer          string                    `json:"answer"`
	SessionID       string                    `json:"session_id,omitempty"`
	PipelineID      string                    `json:"pipeline_id"`
	RewrittenQuery  string                    `json:"rewritten_query"`
	Chunks          []*ChunkDTO               `json:"chunks"`
	Metadata        map[string]map[string]any `json:"metadata,omitempty"`
	Errors          []string                  `json:"errors,omitempty"`
	Status          string                    `json:"status"`
	ExecutionTimeMs int64                     `json:"execution_time_ms"`
}

// ToChunkDTOs 检索片段转换
func ToChunkDTOs(chunks []pipeline.RetrievedChunk) []*ChunkDTO {
	out := make([]*ChunkDTO, 0, len(chunks))
	for i := range chunks {
		out = append(out, &ChunkDTO{
			ID:         chunks[i].ID,
			DocumentID: chunks[i].DocumentID,
			ChunkIndex: chunks[i].ChunkIndex,
			Text:       chunks[i].Text,
			Score:      chunks[i].Score,
		})
	}
	return out
}

// ToQueryResponse 应用层结果转换为响应
func ToQueryResponse(r *query.Result) *QueryResponse {
	if r == nil {
		return nil
	}
	return &QueryResponse{
		Answer:          r.Answer,
		SessionID:       r.SessionID,
		PipelineID:      r.PipelineID,
		RewrittenQuery:  r.RewrittenQuery,
		Chunks:          ToChunkDTOs(r.Chunks),
		Metadata:        r.Metadata,
		Errors:          r.Errors,
		Status:          r.Status,
		ExecutionTimeMs: r.ExecutionTime.Milliseconds(),
	}
}
