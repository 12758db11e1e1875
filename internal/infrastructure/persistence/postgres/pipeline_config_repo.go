// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

// PipelineConfigRepository 管道配置仓储实现
type PipelineConfigRepository struct {
	client *Client
}

// NewPipelineConfigRepository 创建管道配置仓储
func NewPipelineConfigRepository(client *Client) *PipelineConfigRepository {
	return &PipelineConfigRepository{client: client}
}

// Create 创建管道配置
func (r *PipelineConfigRepository) Create(ctx context.Context, config *entity.PipelineConfig) error {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(config).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create pipeline config: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取管道配置
func (r *PipelineConfigRepository) GetByID(ctx context.Context, id string) (*entity.PipelineConfig, error) {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var config entity.PipelineConfig
	if err := db.First(&config, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get pipeline config: %w", err)
	}
	return &config, nil
}

// GetDefaultByUser 获取用户的默认管道配置，存在多条时取最新创建的一条
func (r *PipelineConfigRepository) GetDefaultByUser(ctx context.Context, userID string) (*entity.PipelineConfig, error) {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.GetDefaultByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var config entity.PipelineConfig
	if err := db.Where("user_id = ? AND is_default = ?", userID, true).
		Order("created_at DESC").
		First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get default pipeline config: %w", err)
	}
	return &config, nil
}

// Update 更新管道配置
func (r *PipelineConfigRepository) Update(ctx context.Context, config *entity.PipelineConfig) error {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(config).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update pipeline config: %w", err)
	}
	return nil
}

// Delete 删除管道配置
func (r *PipelineConfigRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.PipelineConfig{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete pipeline config: %w", err)
	}
	return nil
}

// ListByUser 获取用户的管道配置列表
func (r *PipelineConfigRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.PipelineConfig], error) {
	ctx, span := tracer.Start(ctx, "postgres.PipelineConfigRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.PipelineConfig{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count pipeline configs: %w", err)
	}

	var configs []*entity.PipelineConfig
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&configs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list pipeline configs: %w", err)
	}

	return repository.NewPagedResult(configs, total, pagination), nil
}
