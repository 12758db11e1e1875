// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"knowledge-qa-api/internal/domain/entity"
)

type ConversationSessionRepository interface {
	Create(ctx context.Context, session *entity.ConversationSession) error
	GetByID(ctx context.Context, id string) (*entity.ConversationSession, error)
	Update(ctx context.Context, session *entity.ConversationSession) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.ConversationSession], error)
}

type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error
	ListBySession(ctx context.Context, sessionID string, pagination Pagination) (*PagedResult[*entity.ConversationTurn], error)

	// ListRecent 按时间倒序返回会话内最近的轮次
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.ConversationTurn, error)

	// ListRecentByRole 按时间倒序返回会话内指定角色的最近轮次，用于查询增强
	ListRecentByRole(ctx context.Context, sessionID string, role entity.Role, limit int) ([]*entity.ConversationTurn, error)
}
