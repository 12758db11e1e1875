// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProviderKind 提供方类型
type ProviderKind string

const (
	ProviderKindOpenAI     ProviderKind = "openai"
	ProviderKindCompatible ProviderKind = "openai_compatible"
)

// LLMProvider LLM 提供方实体，管理员配置后供所有用户的管道绑定
type LLMProvider struct {
	ID         string       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string       `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Kind       ProviderKind `json:"kind" gorm:"type:varchar(32);default:'openai'"`
	BaseURL    string       `json:"base_url,omitempty" gorm:"type:varchar(255)"`
	APIKey     string       `json:"-" gorm:"type:varchar(255)"` // 不在 JSON 中暴露
	ChatModel  string       `json:"chat_model" gorm:"type:varchar(100);not null"`
	EmbedModel string       `json:"embed_model,omitempty" gorm:"type:varchar(100)"`
	IsDefault  bool         `json:"is_default" gorm:"index;default:false"`
	Enabled    bool         `json:"enabled" gorm:"default:true"`
	CreatedAt  time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (LLMProvider) TableName() string {
	return "llm_providers"
}

// NewLLMProvider 创建提供方
func NewLLMProvider(name, chatModel string) *LLMProvider {
	now := time.Now()
	return &LLMProvider{
		Name:      name,
		Kind:      ProviderKindOpenAI,
		ChatModel: chatModel,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Usable 检查提供方是否可用
func (p *LLMProvider) Usable() bool {
	return p.Enabled && p.ChatModel != ""
}
