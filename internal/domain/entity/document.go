// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// DocumentStatus 文档索引状态
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusIndexing DocumentStatus = "indexing"
	DocumentStatusIndexed  DocumentStatus = "indexed"
	DocumentStatusFailed   DocumentStatus = "failed"
)

// Document 文档实体，正文按 chunk 切分后写入向量库
type Document struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CollectionID string         `json:"collection_id" gorm:"type:uuid;index;not null"`
	UserID       string         `json:"user_id" gorm:"type:uuid;index;not null"`
	Title        string         `json:"title" gorm:"type:varchar(255);not null"`
	Content      string         `json:"content,omitempty" gorm:"type:text"`
	ContentType  string         `json:"content_type,omitempty" gorm:"type:varchar(100)"`
	Tags         pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	CharCount    int            `json:"char_count" gorm:"default:0"`
	ChunkCount   int            `json:"chunk_count" gorm:"default:0"`
	Status       DocumentStatus `json:"status" gorm:"type:varchar(32);default:'pending'"`
	ErrorDetail  string         `json:"error_detail,omitempty" gorm:"type:text"`
	IndexedAt    *time.Time     `json:"indexed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建新文档
func NewDocument(collectionID, userID, title, content string) *Document {
	now := time.Now()
	return &Document{
		CollectionID: collectionID,
		UserID:       userID,
		Title:        title,
		Content:      content,
		CharCount:    len([]rune(content)),
		Status:       DocumentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkIndexing 标记文档进入索引流程
func (d *Document) MarkIndexing() {
	d.Status = DocumentStatusIndexing
	d.ErrorDetail = ""
	d.UpdatedAt = time.Now()
}

// MarkIndexed 标记文档索引完成
func (d *Document) MarkIndexed(chunkCount int) {
	now := time.Now()
	d.Status = DocumentStatusIndexed
	d.ChunkCount = chunkCount
	d.ErrorDetail = ""
	d.IndexedAt = &now
	d.UpdatedAt = now
}

// MarkFailed 标记文档索引失败
func (d *Document) MarkFailed(detail string) {
	d.Status = DocumentStatusFailed
	d.ErrorDetail = detail
	d.UpdatedAt = time.Now()
}

// Indexable 检查文档是否具备索引条件
func (d *Document) Indexable() bool {
	return d.Content != "" && d.Status != DocumentStatusIndexing
}
