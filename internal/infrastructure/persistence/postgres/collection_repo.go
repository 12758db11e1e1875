// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

// CollectionRepository 集合仓储实现
type CollectionRepository struct {
	client *Client
}

// NewCollectionRepository 创建集合仓储
func NewCollectionRepository(client *Client) *CollectionRepository {
	return &CollectionRepository{client: client}
}

// Create 创建集合
func (r *CollectionRepository) Create(ctx context.Context, collection *entity.Collection) error {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(collection).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取集合
func (r *CollectionRepository) GetByID(ctx context.Context, id string) (*entity.Collection, error) {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var collection entity.Collection
	if err := db.First(&collection, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &collection, nil
}

// Update 更新集合
func (r *CollectionRepository) Update(ctx context.Context, collection *entity.Collection) error {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(collection).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update collection: %w", err)
	}
	return nil
}

// Delete 删除集合
func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Collection{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// ListByUser 获取用户的集合列表
func (r *CollectionRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Collection], error) {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Collection{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count collections: %w", err)
	}

	var collections []*entity.Collection
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&collections).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	return repository.NewPagedResult(collections, total, pagination), nil
}

// UpdateCounters 调整文档数与 chunk 数统计，增量可为负
func (r *CollectionRepository) UpdateCounters(ctx context.Context, id string, documentDelta, chunkDelta int) error {
	ctx, span := tracer.Start(ctx, "postgres.CollectionRepository.UpdateCounters")
	defer span.End()

	db := getDB(ctx, r.client.db)
	updates := map[string]interface{}{}
	if documentDelta != 0 {
		updates["document_count"] = gorm.Expr("document_count + ?", documentDelta)
	}
	if chunkDelta != 0 {
		updates["chunk_count"] = gorm.Expr("chunk_count + ?", chunkDelta)
	}
	if len(updates) == 0 {
		return nil
	}

	if err := db.Model(&entity.Collection{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update collection counters: %w", err)
	}
	return nil
}
