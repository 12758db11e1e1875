package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

type fakeSessionRepo struct {
	sessions map[string]*entity.ConversationSession
	created  int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.ConversationSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entity.ConversationSession) error {
	r.created++
	if s.ID == "" {
		s.ID = fmt.Sprintf("session-%d", r.created)
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*entity.ConversationSession, error) {
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *entity.ConversationSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) ListByUser(_ context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationSession], error) {
	var items []*entity.ConversationSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			items = append(items, s)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), pagination), nil
}

type fakeTurnRepo struct {
	turns []*entity.ConversationTurn
}

func (r *fakeTurnRepo) Create(_ context.Context, t *entity.ConversationTurn) error {
	if t.ID == "" {
		t.ID = fmt.Sprintf("turn-%d", len(r.turns)+1)
	}
	r.turns = append(r.turns, t)
	return nil
}

func (r *fakeTurnRepo) ListBySession(_ context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ConversationTurn], error) {
	var items []*entity.ConversationTurn
	for _, t := range r.turns {
		if t.SessionID == sessionID {
			items = append(items, t)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), pagination), nil
}

func (r *fakeTurnRepo) ListRecent(_ context.Context, sessionID string, limit int) ([]*entity.ConversationTurn, error) {
	var matched []*entity.ConversationTurn
	for _, t := range r.turns {
		if t.SessionID == sessionID {
			matched = append(matched, t)
		}
	}
	// 倒序返回最近 limit 条
	var out []*entity.ConversationTurn
	for i := len(matched) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, matched[i])
	}
	return out, nil
}

func (r *fakeTurnRepo) ListRecentByRole(_ context.Context, sessionID string, role entity.Role, limit int) ([]*entity.ConversationTurn, error) {
	var matched []*entity.ConversationTurn
	for _, t := range r.turns {
		if t.SessionID == sessionID && t.Role == role {
			matched = append(matched, t)
		}
	}
	var out []*entity.ConversationTurn
	for i := len(matched) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, matched[i])
	}
	return out, nil
}

func TestStartSession(t *testing.T) {
	svc := NewService(newFakeSessionRepo(), &fakeTurnRepo{})

	session, err := svc.StartSession(context.Background(), "user-1", "col-1", "  My chat  ")

	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "col-1", session.CollectionID)
	assert.Equal(t, "My chat", session.Title)
}

func TestStartSessionRequiresIDs(t *testing.T) {
	svc := NewService(newFakeSessionRepo(), &fakeTurnRepo{})

	_, err := svc.StartSession(context.Background(), "", "col-1", "")
	require.Error(t, err)

	_, err = svc.StartSession(context.Background(), "user-1", "  ", "")
	require.Error(t, err)
}

func TestGetSessionChecksOwnership(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewService(sessions, &fakeTurnRepo{})
	created, err := svc.StartSession(context.Background(), "user-1", "col-1", "")
	require.NoError(t, err)

	_, err = svc.GetSession(context.Background(), "user-2", created.ID)
	require.Error(t, err)

	got, err := svc.GetSession(context.Background(), "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestAppendTurnUpdatesSession(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewService(sessions, &fakeTurnRepo{})
	session, err := svc.StartSession(context.Background(), "user-1", "col-1", "")
	require.NoError(t, err)

	turn, err := svc.AppendTurn(context.Background(), session.ID, entity.RoleUser,
		"What is IBM Watson?", []string{"IBM Watson"}, nil)

	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, turn.Role)
	assert.Equal(t, []string{"IBM Watson"}, []string(turn.Entities))

	stored := sessions.sessions[session.ID]
	assert.Equal(t, 1, stored.TurnCount)
	// 首条用户轮次自动生成标题
	assert.Equal(t, "What is IBM Watson?", stored.Title)
}

func TestHistoryReturnsChronologicalOrder(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}
	svc := NewService(sessions, turns)
	session, err := svc.StartSession(context.Background(), "user-1", "col-1", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		role := entity.RoleUser
		if i%2 == 1 {
			role = entity.RoleAssistant
		}
		_, err := svc.AppendTurn(context.Background(), session.ID, role, fmt.Sprintf("message %d", i), nil, nil)
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), session.ID, 3)

	require.NoError(t, err)
	require.Len(t, history, 3)
	// 取最近 3 条并按时间先后排列
	assert.Equal(t, "message 1", history[0].Content)
	assert.Equal(t, "message 2", history[1].Content)
	assert.Equal(t, "message 3", history[2].Content)
	assert.Equal(t, entity.RoleAssistant, history[0].Role)
}

func TestHistoryEmptySessionID(t *testing.T) {
	svc := NewService(newFakeSessionRepo(), &fakeTurnRepo{})

	history, err := svc.History(context.Background(), "  ", 5)

	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestDeleteSession(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewService(sessions, &fakeTurnRepo{})
	session, err := svc.StartSession(context.Background(), "user-1", "col-1", "")
	require.NoError(t, err)

	require.Error(t, svc.DeleteSession(context.Background(), "intruder", session.ID))
	require.NoError(t, svc.DeleteSession(context.Background(), "user-1", session.ID))
	assert.Empty(t, sessions.sessions)
}
