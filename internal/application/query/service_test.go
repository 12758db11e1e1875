package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	apperrors "knowledge-qa-api/pkg/errors"
)

// ---- 管道依赖 ----

type fakeConfigStore struct {
	defaults map[string]*entity.PipelineConfig
	configs  map[string]*entity.PipelineConfig
	created  int
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{
		defaults: make(map[string]*entity.PipelineConfig),
		configs:  make(map[string]*entity.PipelineConfig),
	}
}

func (s *fakeConfigStore) addConfig(cfg *entity.PipelineConfig) {
	s.configs[cfg.ID] = cfg
	if cfg.IsDefault {
		s.defaults[cfg.UserID] = cfg
	}
}

func (s *fakeConfigStore) GetDefaultPipeline(_ context.Context, userID string) (*entity.PipelineConfig, error) {
	return s.defaults[userID], nil
}

func (s *fakeConfigStore) GetPipelineConfig(_ context.Context, pipelineID string) (*entity.PipelineConfig, error) {
	return s.configs[pipelineID], nil
}

func (s *fakeConfigStore) CreateDefaultPipeline(_ context.Context, userID, providerID string) (*entity.PipelineConfig, error) {
	s.created++
	cfg := entity.NewDefaultPipelineConfig(userID, providerID)
	cfg.ID = fmt.Sprintf("pipeline-%d", s.created)
	s.addConfig(cfg)
	return cfg, nil
}

type fakeRegistry struct {
	provider *entity.LLMProvider
}

func (r *fakeRegistry) GetDefaultProvider(context.Context, string) (*entity.LLMProvider, error) {
	return r.provider, nil
}

type fakeSearcher struct {
	results []pipeline.RetrievedChunk
	err     error
	gotTopK int
}

func (s *fakeSearcher) Search(_ context.Context, _, _ string, topK int) ([]pipeline.RetrievedChunk, error) {
	s.gotTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

// ---- 仓储 ----

type fakeCollectionRepo struct {
	collections map[string]*entity.Collection
}

func (r *fakeCollectionRepo) Create(context.Context, *entity.Collection) error { return nil }
func (r *fakeCollectionRepo) GetByID(_ context.Context, id string) (*entity.Collection, error) {
	return r.collections[id], nil
}
func (r *fakeCollectionRepo) Update(context.Context, *entity.Collection) error { return nil }
func (r *fakeCollectionRepo) Delete(context.Context, string) error             { return nil }
func (r *fakeCollectionRepo) ListByUser(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.Collection], error) {
	return nil, nil
}
func (r *fakeCollectionRepo) UpdateCounters(context.Context, string, int, int) error { return nil }

type fakeProviderRepo struct {
	providers map[string]*entity.LLMProvider
}

func (r *fakeProviderRepo) Create(context.Context, *entity.LLMProvider) error { return nil }
func (r *fakeProviderRepo) GetByID(_ context.Context, id string) (*entity.LLMProvider, error) {
	return r.providers[id], nil
}
func (r *fakeProviderRepo) GetByName(context.Context, string) (*entity.LLMProvider, error) {
	return nil, nil
}
func (r *fakeProviderRepo) GetDefault(context.Context) (*entity.LLMProvider, error) {
	return nil, nil
}
func (r *fakeProviderRepo) Update(context.Context, *entity.LLMProvider) error { return nil }
func (r *fakeProviderRepo) Delete(context.Context, string) error              { return nil }
func (r *fakeProviderRepo) List(context.Context, repository.Pagination) (*repository.PagedResult[*entity.LLMProvider], error) {
	return nil, nil
}

type fakeSessionRepo struct {
	sessions map[string]*entity.ConversationSession
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entity.ConversationSession) error {
	if s.ID == "" {
		s.ID = fmt.Sprintf("session-%d", len(r.sessions)+1)
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
func (r *fakeSessionRepo) ListByUser(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.ConversationSession], error) {
	return nil, nil
}

type fakeTurnRepo struct {
	turns []*entity.ConversationTurn
}

func (r *fakeTurnRepo) Create(_ context.Context, t *entity.ConversationTurn) error {
	r.turns = append(r.turns, t)
	return nil
}
func (r *fakeTurnRepo) ListBySession(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.ConversationTurn], error) {
	return nil, nil
}
func (r *fakeTurnRepo) ListRecent(_ context.Context, sessionID string, limit int) ([]*entity.ConversationTurn, error) {
	var out []*entity.ConversationTurn
	for i := len(r.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if r.turns[i].SessionID == sessionID {
			out = append(out, r.turns[i])
		}
	}
	return out, nil
}
func (r *fakeTurnRepo) ListRecentByRole(context.Context, string, entity.Role, int) ([]*entity.ConversationTurn, error) {
	return nil, nil
}

// ---- LLM ----

type fakeChatModel struct {
	response string
	err      error
	gotMsgs  []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.gotMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.response, nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.gotMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage(m.response, nil),
	}), nil
}

type fakeFactory struct {
	model       model.BaseChatModel
	gotProvider string
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.gotProvider = name
	if f.model == nil {
		return nil, errors.New("no model configured")
	}
	return f.model, nil
}

// ---- 组装 ----

type serviceFixture struct {
	svc      *Service
	store    *fakeConfigStore
	searcher *fakeSearcher
	chat     *fakeChatModel
	factory  *fakeFactory
	turns    *fakeTurnRepo
	sessions *fakeSessionRepo
}

func watsonChunks(n int) []pipeline.RetrievedChunk {
	chunks := make([]pipeline.RetrievedChunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, pipeline.RetrievedChunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-watson",
			ChunkIndex: i,
			Text:       fmt.Sprintf("IBM Watson passage %d", i),
			Score:      1.0 - float32(i)*0.05,
		})
	}
	return chunks
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := newFakeConfigStore()
	registry := &fakeRegistry{provider: &entity.LLMProvider{ID: "prov-1", Name: "openai", Enabled: true}}
	searcher := &fakeSearcher{results: watsonChunks(5)}

	executor := pipeline.NewExecutor(
		pipeline.NewResolutionStage(store, registry),
		pipeline.NewEnhancementStage(nil),
		pipeline.NewRetrievalStage(searcher, 5),
		pipeline.NewRerankingStage(nil, false),
	)

	collections := &fakeCollectionRepo{collections: map[string]*entity.Collection{}}
	col := entity.NewCollection("user-1", "watson docs", "")
	col.ID = "col-1"
	collections.collections[col.ID] = col

	providers := &fakeProviderRepo{providers: map[string]*entity.LLMProvider{
		"prov-1": {ID: "prov-1", Name: "openai", Enabled: true},
	}}

	sessions := &fakeSessionRepo{sessions: map[string]*entity.ConversationSession{}}
	turns := &fakeTurnRepo{}
	conversations := conversation.NewService(sessions, turns)

	chat := &fakeChatModel{response: "Watson is IBM's question answering system. [1]"}
	factory := &fakeFactory{model: chat}

	return &serviceFixture{
		svc:      NewService(executor, store, providers, collections, conversations, factory),
		store:    store,
		searcher: searcher,
		chat:     chat,
		factory:  factory,
		turns:    turns,
		sessions: sessions,
	}
}

func TestAskHappyPath(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.svc.Ask(context.Background(), &AskRequest{
		Question:     "What is IBM Watson?",
		CollectionID: "col-1",
		UserID:       "user-1",
		TopK:         3,
	})

	require.NoError(t, err)
	assert.Equal(t, "Watson is IBM's question answering system. [1]", result.Answer)
	assert.Equal(t, pipeline.RunStatusOK, result.Status)
	assert.Equal(t, "pipeline-1", result.PipelineID)
	assert.Equal(t, "What is IBM Watson?", result.RewrittenQuery)
	assert.Len(t, result.Chunks, 3)
	assert.Empty(t, result.Errors)

	// 检索片段与问题都进入了生成 Prompt
	var prompt strings.Builder
	for _, msg := range f.chat.gotMsgs {
		prompt.WriteString(msg.Content)
	}
	assert.Contains(t, prompt.String(), "IBM Watson passage 0")
	assert.Contains(t, prompt.String(), "What is IBM Watson?")
	// 生成使用解析出的提供方
	assert.Equal(t, "openai", f.factory.gotProvider)
}

func TestAskValidation(t *testing.T) {
	f := newServiceFixture(t)

	tests := []struct {
		name string
		req  *AskRequest
	}{
		{name: "nil request", req: nil},
		{name: "missing question", req: &AskRequest{CollectionID: "col-1", UserID: "user-1"}},
		{name: "missing collection", req: &AskRequest{Question: "q", UserID: "user-1"}},
		{name: "missing user", req: &AskRequest{Question: "q", CollectionID: "col-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ask(context.Background(), tt.req)
			require.Error(t, err)
		})
	}
}

func TestAskCollectionChecks(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Ask(context.Background(), &AskRequest{
		Question: "q", CollectionID: "missing", UserID: "user-1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCollectionNotFound, apperrors.AsAppError(err).Code)

	_, err = f.svc.Ask(context.Background(), &AskRequest{
		Question: "q", CollectionID: "col-1", UserID: "intruder",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)
}

func TestAskNoProviderIsTerminal(t *testing.T) {
	f := newServiceFixture(t)
	// 没有默认管道也没有可用提供方
	executor := pipeline.NewExecutor(
		pipeline.NewResolutionStage(newFakeConfigStore(), &fakeRegistry{provider: nil}),
	)
	f.svc.executor = executor

	_, err := f.svc.Ask(context.Background(), &AskRequest{
		Question: "q", CollectionID: "col-1", UserID: "user-1",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProviderNotConfigured, apperrors.AsAppError(err).Code)
}

func TestAskToleratesRetrievalFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.searcher.err = errors.New("milvus unavailable")

	result, err := f.svc.Ask(context.Background(), &AskRequest{
		Question: "q", CollectionID: "col-1", UserID: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.RunStatusPartial, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "retrieval failed")
	assert.NotEmpty(t, result.Answer)
}

func TestAskPersistsTurns(t *testing.T) {
	f := newServiceFixture(t)
	session := entity.NewConversationSession("user-1", "col-1", "")
	session.ID = "sess-1"
	f.sessions.sessions[session.ID] = session

	result, err := f.svc.Ask(context.Background(), &AskRequest{
		Question:     "What is IBM Watson?",
		CollectionID: "col-1",
		UserID:       "user-1",
		SessionID:    "sess-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "sess-1", result.SessionID)

	require.Len(t, f.turns.turns, 2)
	assert.Equal(t, entity.RoleUser, f.turns.turns[0].Role)
	assert.Equal(t, "What is IBM Watson?", f.turns.turns[0].Content)
	assert.Equal(t, entity.RoleAssistant, f.turns.turns[1].Role)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(f.turns.turns[1].Metadata, &meta))
	assert.Equal(t, "pipeline-1", meta["pipeline_id"])
	assert.Equal(t, "ok", meta["status"])
}

func TestAskFillsOptionsFromExplicitPipeline(t *testing.T) {
	f := newServiceFixture(t)
	cfg := entity.NewPipelineConfig("user-1", "prov-1", "tuned")
	cfg.ID = "pipe-tuned"
	cfg.RetrievalTopK = 2
	f.store.addConfig(cfg)

	result, err := f.svc.Ask(context.Background(), &AskRequest{
		Question:     "q",
		CollectionID: "col-1",
		UserID:       "user-1",
		PipelineID:   "pipe-tuned",
	})

	require.NoError(t, err)
	assert.Equal(t, "pipe-tuned", result.PipelineID)
	// 请求未给 top_k 时取管道配置里的值
	assert.Equal(t, 2, f.searcher.gotTopK)
	assert.Len(t, result.Chunks, 2)
}

func TestAskStreamRecordsUserTurnOnly(t *testing.T) {
	f := newServiceFixture(t)
	session := entity.NewConversationSession("user-1", "col-1", "")
	session.ID = "sess-1"
	f.sessions.sessions[session.ID] = session

	reader, rc, err := f.svc.AskStream(context.Background(), &AskRequest{
		Question:     "What is IBM Watson?",
		CollectionID: "col-1",
		UserID:       "user-1",
		SessionID:    "sess-1",
	})

	require.NoError(t, err)
	require.NotNil(t, reader)
	defer reader.Close()
	require.NotNil(t, rc)
	assert.Equal(t, "pipeline-1", rc.PipelineID)

	require.Len(t, f.turns.turns, 1)
	assert.Equal(t, entity.RoleUser, f.turns.turns[0].Role)

	// 流结束后补记助手轮次
	f.svc.RecordAssistantTurn(context.Background(), rc, "final answer")
	require.Len(t, f.turns.turns, 2)
	assert.Equal(t, entity.RoleAssistant, f.turns.turns[1].Role)
}

func TestAskGenerationFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.chat.err = errors.New("model overloaded")

	_, err := f.svc.Ask(context.Background(), &AskRequest{
		Question: "q", CollectionID: "col-1", UserID: "user-1",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeLLMCallFailed, apperrors.AsAppError(err).Code)
}
