// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

// CreateCollectionRequest 创建集合请求
type CreateCollectionRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description,omitempty" binding:"omitempty,max=2000"`
}

// UpdateCollectionRequest 更新集合请求
type UpdateCollectionRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *string `json:"status" binding:"omitempty,oneof=active archived"`
}

// ApplyToCollection 更新实体
func (r *UpdateCollectionRequest) ApplyToCollection(col *entity.Collection) {
	if r.Name != nil {
		col.Name = *r.Name
	}
	if r.Description != nil {
		col.Description = *r.Description
	}
	if r.Status != nil {
		col.Status = entity.CollectionStatus(*r.Status)
	}
	col.UpdatedAt = time.Now()
}

// CollectionResponse 集合响应
type CollectionResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ToCollectionResponse 实体转换为响应
func ToCollectionResponse(col *entity.Collection) *CollectionResponse {
	if col == nil {
		return nil
	}
	return &CollectionResponse{
		ID:            col.ID,
		UserID:        col.UserID,
		Name:          col.Name,
		Description:   col.Description,
		DocumentCount: col.DocumentCount,
		ChunkCount:    col.ChunkCount,
		Status:        string(col.Status),
		CreatedAt:     col.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     col.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToCollectionResponses 实体列表转换
func ToCollectionResponses(cols []*entity.Collection) []*CollectionResponse {
	items := make([]*CollectionResponse, 0, len(cols))
	for _, col := range cols {
		if col == nil {
			continue
		}
		items = append(items, ToCollectionResponse(col))
	}
	return items
}
