// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// CollectionRepository 集合仓储接口
type CollectionRepository interface {
	Create(ctx context.Context, collection *entity.Collection) error
	GetByID(ctx context.Context, id string) (*entity.Collection, error)
	Update(ctx context.Context, collection *entity.Collection) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.Collection], error)

	// UpdateCounters 调整文档数与 chunk 数统计
	UpdateCounters(ctx context.Context, id string, documentDelta, chunkDelta int) error
}
