// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

// LLMProviderRepository 提供方仓储实现
type LLMProviderRepository struct {
	client *Client
}

// NewLLMProviderRepository 创建提供方仓储
func NewLLMProviderRepository(client *Client) *LLMProviderRepository {
	return &LLMProviderRepository{client: client}
}

// Create 创建提供方
func (r *LLMProviderRepository) Create(ctx context.Context, provider *entity.LLMProvider) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(provider).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create llm provider: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取提供方
func (r *LLMProviderRepository) GetByID(ctx context.Context, id string) (*entity.LLMProvider, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var provider entity.LLMProvider
	if err := db.First(&provider, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get llm provider: %w", err)
	}
	return &provider, nil
}

// GetByName 根据名称获取提供方
func (r *LLMProviderRepository) GetByName(ctx context.Context, name string) (*entity.LLMProvider, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var provider entity.LLMProvider
	if err := db.First(&provider, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get llm provider by name: %w", err)
	}
	return &provider, nil
}

// GetDefault 获取默认提供方，无标记时回退到最早创建的可用提供方
func (r *LLMProviderRepository) GetDefault(ctx context.Context) (*entity.LLMProvider, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.GetDefault")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var provider entity.LLMProvider
	err := db.Where("is_default = ? AND enabled = ?", true, true).
		Order("created_at ASC").
		First(&provider).Error
	if err == gorm.ErrRecordNotFound {
		err = db.Where("enabled = ?", true).
			Order("created_at ASC").
			First(&provider).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get default llm provider: %w", err)
	}
	return &provider, nil
}

// Update 更新提供方
func (r *LLMProviderRepository) Update(ctx context.Context, provider *entity.LLMProvider) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(provider).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update llm provider: %w", err)
	}
	return nil
}

// Delete 删除提供方
func (r *LLMProviderRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.LLMProvider{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete llm provider: %w", err)
	}
	return nil
}

// List 获取提供方列表
func (r *LLMProviderRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.LLMProvider], error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMProviderRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.LLMProvider{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count llm providers: %w", err)
	}

	var providers []*entity.LLMProvider
	if err := query.Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&providers).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list llm providers: %w", err)
	}

	return repository.NewPagedResult(providers, total, pagination), nil
}
