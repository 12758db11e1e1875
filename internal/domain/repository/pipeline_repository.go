// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// PipelineConfigRepository 管道配置仓储接口
type PipelineConfigRepository interface {
	Create(ctx context.Context, config *entity.PipelineConfig) error

	// GetByID 根据 ID 获取配置，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.PipelineConfig, error)

	// GetDefaultByUser 获取用户的默认配置，不存在时返回 (nil, nil)；
	// 存在多条时取最新创建的一条
	GetDefaultByUser(ctx context.Context, userID string) (*entity.PipelineConfig, error)

	Update(ctx context.Context, config *entity.PipelineConfig) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.PipelineConfig], error)
}
