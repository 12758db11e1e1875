// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

// CreateDocumentRequest 创建文档请求
type CreateDocumentRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Content     string   `json:"content" binding:"required"`
	ContentType string   `json:"content_type,omitempty" binding:"omitempty,max=100"`
	Tags        []string `json:"tags,omitempty" binding:"omitempty,max=20,dive,max=64"`
}

// UpdateDocumentRequest 更新文档请求，正文变更会触发重新索引
type UpdateDocumentRequest struct {
	Title   *string   `json:"title" binding:"omitempty,max=255"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags" binding:"omitempty,max=20,dive,max=64"`
}

// DocumentResponse 文档响应，列表场景不含正文
type DocumentResponse struct {
	ID           string   `json:"id"`
	CollectionID string   `json:"collection_id"`
	UserID       string   `json:"user_id"`
	Title        string   `json:"title"`
	Content      string   `json:"content,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CharCount    int      `json:"char_count"`
	ChunkCount   int      `json:"chunk_count"`
	Status       string   `json:"status"`
	ErrorDetail  string   `json:"error_detail,omitempty"`
	IndexedAt    string   `json:"indexed_at,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// ToDocumentResponse 实体转换为响应
func ToDocumentResponse(doc *entity.Document, includeContent bool) *DocumentResponse {
	if doc == nil {
		return nil
	}
	resp := &DocumentResponse{
		ID:           doc.ID,
		CollectionID: doc.CollectionID,
		UserID:       doc.UserID,
		Title:        doc.Title,
		ContentType:  doc.ContentType,
		Tags:         doc.Tags,
		CharCount:    doc.CharCount,
		ChunkCount:   doc.ChunkCount,
		Status:       string(doc.Status),
		ErrorDetail:  doc.ErrorDetail,
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if includeContent {
		resp.Content = doc.Content
	}
	if doc.IndexedAt != nil {
		resp.IndexedAt = doc.IndexedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// ToDocumentResponses 实体列表转换，不含正文
func ToDocumentResponses(docs []*entity.Document) []*DocumentResponse {
	items := make([]*DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		items = append(items, ToDocumentResponse(doc, false))
	}
	return items
}
