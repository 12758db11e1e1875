// Package conversation 管理问答会话、轮次与基于 LLM 的实体提取
package conversation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/pkg/errors"
	"knowledge-qa-api/pkg/logger"
	"knowledge-qa-api/pkg/metrics"
)

var tracer = otel.Tracer("conversation")

const defaultHistoryTurns = 10

// Service 管理会话生命周期与轮次持久化
type Service struct {
	sessions repository.ConversationSessionRepository
	turns    repository.ConversationTurnRepository
}

func NewService(sessions repository.ConversationSessionRepository, turns repository.ConversationTurnRepository) *Service {
	return &Service{
		sessions: sessions,
		turns:    turns,
	}
}

// StartSession 创建新会话
func (s *Service) StartSession(ctx context.Context, userID, collectionID, title string) (*entity.ConversationSession, error) {
	ctx, span := tracer.Start(ctx, "conversation.StartSession")
	defer span.End()

	userID = strings.TrimSpace(userID)
	collectionID = strings.TrimSpace(collectionID)
	if userID == "" || collectionID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "user id and collection id are required")
	}

	session := entity.NewConversationSession(userID, collectionID, strings.TrimSpace(title))
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "创建会话失败")
	}

	metrics.ActiveSessions.Inc()
	logger.Info(ctx, "conversation session started",
		"session_id", session.ID,
		"collection_id", collectionID,
	)
	return session, nil
}

// GetSession 获取会话并校验归属
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*entity.ConversationSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "获取会话失败")
	}
	if session == nil {
		return nil, errors.ErrConversationNotFound
	}
	if session.UserID != userID {
		return nil, errors.ErrForbidden
	}
	return session, nil
}

// ListSessions 按用户分页列出会话
func (s *Service) ListSessions(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationSession], error) {
	result, err := s.sessions.ListByUser(ctx, userID, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询会话列表失败")
	}
	return result, nil
}

// DeleteSession 删除会话
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除会话失败")
	}
	metrics.ActiveSessions.Dec()
	return nil
}

// AppendTurn 追加一条轮次并同步会话统计
func (s *Service) AppendTurn(ctx context.Context, sessionID string, role entity.Role, content string, entities []string, metadata json.RawMessage) (*entity.ConversationTurn, error) {
	ctx, span := tracer.Start(ctx, "conversation.AppendTurn")
	defer span.End()

	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "session id is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "content is required")
	}

	turn := entity.NewConversationTurn(sessionID, role, content, metadata)
	turn.Entities = pq.StringArray(entities)
	if err := s.turns.Create(ctx, turn); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "写入轮次失败")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err == nil && session != nil {
		session.TurnCount++
		if session.Title == "" && role == entity.RoleUser {
			session.Title = truncateTitle(content)
		}
		if updateErr := s.sessions.Update(ctx, session); updateErr != nil {
			logger.Warn(ctx, "update session turn count", "session_id", sessionID, "error", updateErr)
		}
	}
	return turn, nil
}

// History 返回会话最近的轮次，按时间先后排列，供查询管道使用
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]pipeline.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultHistoryTurns
	}

	turns, err := s.turns.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询会话历史失败")
	}

	// 仓储返回倒序，这里翻转成时间先后
	history := make([]pipeline.Turn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i] == nil {
			continue
		}
		history = append(history, pipeline.Turn{
			Role:    turns[i].Role,
			Content: turns[i].Content,
		})
	}
	return history, nil
}

// ListTurns 分页列出会话轮次
func (s *Service) ListTurns(ctx context.Context, userID, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationTurn], error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	result, err := s.turns.ListBySession(ctx, sessionID, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询轮次列表失败")
	}
	return result, nil
}

func truncateTitle(content string) string {
	const maxTitleRunes = 60
	title := strings.TrimSpace(content)
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes]))
}
