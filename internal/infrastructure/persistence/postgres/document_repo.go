// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

// DocumentRepository 文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 创建文档
func (r *DocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(document).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文档
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var document entity.Document
	if err := db.First(&document, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &document, nil
}

// GetByIDForUpdate 带行锁获取文档，索引流程用于避免并发重建
func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: "UPDATE"})
	var document entity.Document
	if err := db.First(&document, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document for update: %w", err)
	}
	return &document, nil
}

// Update 更新文档
func (r *DocumentRepository) Update(ctx context.Context, document *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(document).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Delete 删除文档
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Document{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteByCollection 删除集合下的全部文档，集合删除时调用
func (r *DocumentRepository) DeleteByCollection(ctx context.Context, collectionID string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.DeleteByCollection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Document{}, "collection_id = ?", collectionID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete documents by collection: %w", err)
	}
	return nil
}

// ListByCollection 获取集合下的文档列表
func (r *DocumentRepository) ListByCollection(ctx context.Context, collectionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListByCollection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Document{}).Where("collection_id = ?", collectionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var documents []*entity.Document
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&documents).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return repository.NewPagedResult(documents, total, pagination), nil
}

// ListByStatus 按状态列出文档，索引恢复流程使用
func (r *DocumentRepository) ListByStatus(ctx context.Context, status entity.DocumentStatus, limit int) ([]*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListByStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var documents []*entity.Document
	if err := db.Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&documents).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents by status: %w", err)
	}
	return documents, nil
}

// UpdateStatus 更新文档状态与错误详情
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, errorDetail string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	updates := map[string]interface{}{
		"status":       status,
		"error_detail": errorDetail,
	}
	if err := db.Model(&entity.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}
