// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

// CreatePipelineRequest 创建管道配置请求
type CreatePipelineRequest struct {
	Name          string  `json:"name" binding:"required,max=255"`
	ProviderID    string  `json:"provider_id" binding:"required,uuid"`
	CollectionID  string  `json:"collection_id,omitempty" binding:"omitempty,uuid"`
	IsDefault     bool    `json:"is_default,omitempty"`
	RetrievalTopK int     `json:"retrieval_top_k,omitempty" binding:"omitempty,min=1,max=100"`
	RerankEnabled *bool   `json:"rerank_enabled,omitempty"`
	RerankTopK    int     `json:"rerank_top_k,omitempty" binding:"omitempty,min=1,max=100"`
	Temperature   float64 `json:"temperature,omitempty" binding:"omitempty,min=0,max=2"`
}

// ToPipelineConfig 转换为实体
func (r *CreatePipelineRequest) ToPipelineConfig(userID string) *entity.PipelineConfig {
	cfg := entity.NewPipelineConfig(userID, r.ProviderID, r.Name)
	cfg.CollectionID = r.CollectionID
	cfg.IsDefault = r.IsDefault
	cfg.RetrievalTopK = r.RetrievalTopK
	cfg.RerankTopK = r.RerankTopK
	cfg.Temperature = r.Temperature
	if r.RerankEnabled != nil {
		cfg.RerankEnabled = *r.RerankEnabled
	}
	return cfg
}

// UpdatePipelineRequest 更新管道配置请求
type UpdatePipelineRequest struct {
	Name          *string  `json:"name" binding:"omitempty,max=255"`
	ProviderID    *string  `json:"provider_id" binding:"omitempty,uuid"`
	CollectionID  *string  `json:"collection_id" binding:"omitempty,uuid"`
	IsDefault     *bool    `json:"is_default"`
	RetrievalTopK *int     `json:"retrieval_top_k" binding:"omitempty,min=0,max=100"`
	RerankEnabled *bool    `json:"rerank_enabled"`
	RerankTopK    *int     `json:"rerank_top_k" binding:"omitempty,min=0,max=100"`
	Temperature   *float64 `json:"temperature" binding:"omitempty,min=0,max=2"`
}

// ApplyToPipelineConfig 更新实体
func (r *UpdatePipelineRequest) ApplyToPipelineConfig(cfg *entity.PipelineConfig) {
	if r.Name != nil {
		cfg.Name = *r.Name
	}
	if r.ProviderID != nil {
		cfg.ProviderID = *r.ProviderID
	}
	if r.CollectionID != nil {
		cfg.CollectionID = *r.CollectionID
	}
	if r.IsDefault != nil {
		cfg.IsDefault = *r.IsDefault
	}
	if r.RetrievalTopK != nil {
		cfg.RetrievalTopK = *r.RetrievalTopK
	}
	if r.RerankEnabled != nil {
		cfg.RerankEnabled = *r.RerankEnabled
	}
	if r.RerankTopK != nil {
		cfg.RerankTopK = *r.RerankTopK
	}
	if r.Temperature != nil {
		cfg.Temperature = *r.Temperature
	}
	cfg.UpdatedAt = time.Now()
}

// PipelineResponse 管道配置响应
type PipelineResponse struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	CollectionID  string  `json:"collection_id,omitempty"`
	ProviderID    string  `json:"provider_id"`
	Name          string  `json:"name"`
	IsDefault     bool    `json:"is_default"`
	RetrievalTopK int     `json:"retrieval_top_k"`
	RerankEnabled bool    `json:"rerank_enabled"`
	RerankTopK    int     `json:"rerank_top_k"`
	Temperature   float64 `json:"temperature"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ToPipelineResponse 实体转换为响应
func ToPipelineResponse(cfg *entity.PipelineConfig) *PipelineResponse {
	if cfg == nil {
		return nil
	}
	return &PipelineResponse{
		ID:            cfg.ID,
		UserID:        cfg.UserID,
		CollectionID:  cfg.CollectionID,
		ProviderID:    cfg.ProviderID,
		Name:          cfg.Name,
		IsDefault:     cfg.IsDefault,
		RetrievalTopK: cfg.RetrievalTopK,
		RerankEnabled: cfg.RerankEnabled,
		RerankTopK:    cfg.RerankTopK,
		Temperature:   cfg.Temperature,
		CreatedAt:     cfg.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     cfg.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToPipelineResponses 实体列表转换
func ToPipelineResponses(cfgs []*entity.PipelineConfig) []*PipelineResponse {
	items := make([]*PipelineResponse, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg == nil {
			continue
		}
		items = append(items, ToPipelineResponse(cfg))
	}
	return items
}
