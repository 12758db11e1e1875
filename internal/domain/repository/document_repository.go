// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// GetByIDForUpdate 带行锁获取文档，索引流程用于避免并发重建
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Document, error)

	Update(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id string) error

	// DeleteByCollection 删除集合下的全部文档，集合删除时调用
	DeleteByCollection(ctx context.Context, collectionID string) error

	ListByCollection(ctx context.Context, collectionID string, pagination Pagination) (*PagedResult[*entity.Document], error)

	// ListByStatus 按状态列出文档，索引恢复流程使用
	ListByStatus(ctx context.Context, status entity.DocumentStatus, limit int) ([]*entity.Document, error)

	// UpdateStatus 更新文档状态与错误详情
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, errorDetail string) error
}
