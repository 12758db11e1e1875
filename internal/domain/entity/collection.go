// Package entity 定义领域实体
package entity

import (
	"time"
)

// CollectionStatus 集合状态
type CollectionStatus string

const (
	CollectionStatusActive   CollectionStatus = "active"
	CollectionStatusArchived CollectionStatus = "archived"
)

// Collection 文档集合实体，一个集合对应向量库中的一个分区
type Collection struct {
	ID            string           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string           `json:"user_id" gorm:"type:uuid;index;not null"`
	Name          string           `json:"name" gorm:"type:varchar(255);not null"`
	Description   string           `json:"description,omitempty" gorm:"type:text"`
	DocumentCount int              `json:"document_count" gorm:"default:0"`
	ChunkCount    int              `json:"chunk_count" gorm:"default:0"`
	Status        CollectionStatus `json:"status" gorm:"type:varchar(32);default:'active'"`
	CreatedAt     time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Collection) TableName() string {
	return "collections"
}

// NewCollection 创建新集合
func NewCollection(userID, name, description string) *Collection {
	now := time.Now()
	return &Collection{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      CollectionStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive 检查集合是否可用
func (c *Collection) IsActive() bool {
	return c.Status == CollectionStatusActive
}
