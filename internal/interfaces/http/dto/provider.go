// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

// CreateProviderRequest 创建 LLM 提供方请求，仅管理员可用
type CreateProviderRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Kind       string `json:"kind,omitempty" binding:"omitempty,oneof=openai openai_compatible"`
	BaseURL    string `json:"base_url,omitempty" binding:"omitempty,url,max=255"`
	APIKey     string `json:"api_key,omitempty" binding:"omitempty,max=255"`
	ChatModel  string `json:"chat_model" binding:"required,max=100"`
	EmbedModel string `json:"embed_model,omitempty" binding:"omitempty,max=100"`
	IsDefault  bool   `json:"is_default,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// ToLLMProvider 转换为实体
func (r *CreateProviderRequest) ToLLMProvider() *entity.LLMProvider {
	provider := entity.NewLLMProvider(r.Name, r.ChatModel)
	if r.Kind != "" {
		provider.Kind = entity.ProviderKind(r.Kind)
	}
	provider.BaseURL = r.BaseURL
	provider.APIKey = r.APIKey
	provider.EmbedModel = r.EmbedModel
	provider.IsDefault = r.IsDefault
	if r.Enabled != nil {
		provider.Enabled = *r.Enabled
	}
	return provider
}

// UpdateProviderRequest 更新 LLM 提供方请求
type UpdateProviderRequest struct {
	Kind       *string `json:"kind" binding:"omitempty,oneof=openai openai_compatible"`
	BaseURL    *string `json:"base_url" binding:"omitempty,max=255"`
	APIKey     *string `json:"api_key" binding:"omitempty,max=255"`
	ChatModel  *string `json:"chat_model" binding:"omitempty,max=100"`
	EmbedModel *string `json:"embed_model" binding:"omitempty,max=100"`
	IsDefault  *bool   `json:"is_default"`
	Enabled    *bool   `json:"enabled"`
}

// ApplyToProvider 更新实体，APIKey 为空串表示清除
func (r *UpdateProviderRequest) ApplyToProvider(p *entity.LLMProvider) {
	if r.Kind != nil {
		p.Kind = entity.ProviderKind(*r.Kind)
	}
	if r.BaseURL != nil {
		p.BaseURL = *r.BaseURL
	}
	if r.APIKey != nil {
		p.APIKey = *r.APIKey
	}
	if r.ChatModel != nil {
		p.ChatModel = *r.ChatModel
	}
	if r.EmbedModel != nil {
		p.EmbedModel = *r.EmbedModel
	}
	if r.IsDefault != nil {
		p.IsDefault = *r.IsDefault
	}
	if r.Enabled != nil {
		p.Enabled = *r.Enabled
	}
	p.UpdatedAt = time.Now()
}

// ProviderResponse LLM 提供方响应，不包含 API Key
type ProviderResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	BaseURL    string `json:"base_url,omitempty"`
	ChatModel  string `json:"chat_model"`
	EmbedModel string `json:"embed_model,omitempty"`
	IsDefault  bool   `json:"is_default"`
	Enabled    bool   `json:"enabled"`
	HasAPIKey  bool   `json:"has_api_key"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// ToProviderResponse 实体转换为响应
func ToProviderResponse(p *entity.LLMProvider) *ProviderResponse {
	if p == nil {
		return nil
	}
	return &ProviderResponse{
		ID:         p.ID,
		Name:       p.Name,
		Kind:       string(p.Kind),
		BaseURL:    p.BaseURL,
		ChatModel:  p.ChatModel,
		EmbedModel: p.EmbedModel,
		IsDefault:  p.IsDefault,
		Enabled:    p.Enabled,
		HasAPIKey:  p.APIKey != "",
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToProviderResponses 实体列表转换
func ToProviderResponses(providers []*entity.LLMProvider) []*ProviderResponse {
	items := make([]*ProviderResponse, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		items = append(items, ToProviderResponse(p))
	}
	return items
}
