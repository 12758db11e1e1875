// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

// LLMProviderRepository 提供方仓储接口
type LLMProviderRepository interface {
	Create(ctx context.Context, provider *entity.LLMProvider) error

	// GetByID 根据 ID 获取提供方，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.LLMProvider, error)

	// GetByName 根据名称获取提供方，不存在时返回 (nil, nil)
	GetByName(ctx context.Context, name string) (*entity.LLMProvider, error)

	// GetDefault 获取默认提供方，未配置时返回 (nil, nil)
	GetDefault(ctx context.Context) (*entity.LLMProvider, error)

	Update(ctx context.Context, provider *entity.LLMProvider) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.LLMProvider], error)
}
