// Package entity 定义领域实体
package entity

import (
	"time"
)

// DefaultPipelineName 自动创建的默认管道名称
const DefaultPipelineName = "default"

// PipelineConfig 查询管道配置，将检索与生成参数绑定到某个 LLM 提供方
type PipelineConfig struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string    `json:"user_id" gorm:"type:uuid;index;not null"`
	CollectionID  string    `json:"collection_id,omitempty" gorm:"type:uuid;index"`
	ProviderID    string    `json:"provider_id" gorm:"type:uuid;not null"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	IsDefault     bool      `json:"is_default" gorm:"index;default:false"`
	RetrievalTopK int       `json:"retrieval_top_k" gorm:"default:0"` // 0 表示使用系统默认
	RerankEnabled bool      `json:"rerank_enabled" gorm:"default:true"`
	RerankTopK    int       `json:"rerank_top_k" gorm:"default:0"` // 0 表示不截断
	Temperature   float64   `json:"temperature" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (PipelineConfig) TableName() string {
	return "pipeline_configs"
}

// NewPipelineConfig 创建管道配置
func NewPipelineConfig(userID, providerID, name string) *PipelineConfig {
	now := time.Now()
	return &PipelineConfig{
		UserID:        userID,
		ProviderID:    providerID,
		Name:          name,
		RerankEnabled: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewDefaultPipelineConfig 创建用户的默认管道配置
func NewDefaultPipelineConfig(userID, providerID string) *PipelineConfig {
	cfg := NewPipelineConfig(userID, providerID, DefaultPipelineName)
	cfg.IsDefault = true
	return cfg
}
