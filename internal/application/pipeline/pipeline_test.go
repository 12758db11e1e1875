package pipeline

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
)

// fakeConfigStore 内存实现的 ConfigStore
type fakeConfigStore struct {
	defaults map[string]*entity.PipelineConfig
	configs  map[string]*entity.PipelineConfig

	defaultErr error
	getErr     error
	createErr  error
	created    int
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
	if s.defaultErr != nil {
		return nil, s.defaultErr
	}
	return s.defaults[userID], nil
}

func (s *fakeConfigStore) GetPipelineConfig(_ context.Context, pipelineID string) (*entity.PipelineConfig, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.configs[pipelineID], nil
}

func (s *fakeConfigStore) CreateDefaultPipeline(_ context.Context, userID, providerID string) (*entity.PipelineConfig, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created++
	cfg := entity.NewDefaultPipelineConfig(userID, providerID)
	cfg.ID = fmt.Sprintf("pipeline-%d", s.created)
	s.addConfig(cfg)
	return cfg, nil
}

// fakeRegistry 内存实现的 ProviderRegistry
type fakeRegistry struct {
	provider *entity.LLMProvider
	err      error
}

func (r *fakeRegistry) GetDefaultProvider(_ context.Context, _ string) (*entity.LLMProvider, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.provider, nil
}

// fakeSearcher 返回固定结果并记录调用参数
type fakeSearcher struct {
	results []RetrievedChunk
	err     error

	gotQuery      string
	gotCollection string
	gotTopK       int
	calls         int
}

func (s *fakeSearcher) Search(_ context.Context, query, collectionID string, topK int) ([]RetrievedChunk, error) {
	s.calls++
	s.gotQuery = query
	s.gotCollection = collectionID
	s.gotTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

// fakeReranker 按得分降序重排并截断
type fakeReranker struct {
	err     error
	returns []RetrievedChunk // 非空时无视输入直接返回

	gotQuery string
	gotTopK  int
	calls    int
}

func (r *fakeReranker) Rerank(_ context.Context, query string, results []RetrievedChunk, topK int) ([]RetrievedChunk, error) {
	r.calls++
	r.gotQuery = query
	r.gotTopK = topK
	if r.err != nil {
		return nil, r.err
	}
	if r.returns != nil {
		return r.returns, nil
	}
	reranked := make([]RetrievedChunk, len(results))
	copy(reranked, results)
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	if topK > 0 && topK < len(reranked) {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

// fakeExtractor 返回固定实体列表
type fakeExtractor struct {
	entities []string
	err      error

	gotText string
	calls   int
}

func (e *fakeExtractor) EntitiesFromContext(_ context.Context, userText string) ([]string, error) {
	e.calls++
	e.gotText = userText
	if e.err != nil {
		return nil, e.err
	}
	return e.entities, nil
}

func watsonChunks(n int) []RetrievedChunk {
	chunks := make([]RetrievedChunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, RetrievedChunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-watson",
			ChunkIndex: i,
			Text:       fmt.Sprintf("IBM Watson passage %d", i),
			Score:      1.0 - float32(i)*0.05,
		})
	}
	return chunks
}

func standardStages(store *fakeConfigStore, registry *fakeRegistry, extractor *fakeExtractor, searcher *fakeSearcher, reranker *fakeReranker, rerankEnabled bool) []Stage {
	return []Stage{
		NewResolutionStage(store, registry),
		NewEnhancementStage(extractor),
		NewRetrievalStage(searcher, 5),
		NewRerankingStage(reranker, rerankEnabled),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	store := newFakeConfigStore()
	registry := &fakeRegistry{provider: &entity.LLMProvider{ID: "prov-1", Name: "openai", Enabled: true}}
	extractor := &fakeExtractor{}
	searcher := &fakeSearcher{results: watsonChunks(10)}
	reranker := &fakeReranker{}

	executor := NewExecutor(standardStages(store, registry, extractor, searcher, reranker, true)...)

	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1",
		WithTopK(10),
		WithTopKRerank(3),
	)
	result := executor.Execute(context.Background(), rc)

	require.Same(t, rc, result)
	require.Empty(t, result.Errors)

	// 管道解析自动创建了默认配置并通过回读校验
	assert.Equal(t, 1, store.created)
	assert.Equal(t, "pipeline-1", result.PipelineID)

	// 无会话历史时查询保持原文
	assert.Equal(t, "What is IBM Watson?", result.RewrittenQuery)

	// 检索到 10 条候选，重排序后恰好剩 3 条且是原候选的子集
	require.Len(t, result.QueryResults, 3)
	originalIDs := make(map[string]struct{})
	for _, chunk := range searcher.results {
		originalIDs[chunk.ID] = struct{}{}
	}
	for _, chunk := range result.QueryResults {
		_, ok := originalIDs[chunk.ID]
		assert.True(t, ok, "reranked chunk %s must come from the retrieved set", chunk.ID)
	}

	retrievalMD := result.Metadata[StageRetrieval]
	require.NotNil(t, retrievalMD)
	assert.Equal(t, 10, retrievalMD["count"])
	assert.Equal(t, 10, retrievalMD["top_k"])

	rerankMD := result.Metadata[StageReranking]
	require.NotNil(t, rerankMD)
	assert.Equal(t, 10, rerankMD["original_count"])
	assert.Equal(t, 3, rerankMD["reranked_count"])
	assert.Equal(t, "cross_encoder", rerankMD["method"])
}

func TestPipelineIdempotence(t *testing.T) {
	run := func() *RequestContext {
		store := newFakeConfigStore()
		cfg := entity.NewDefaultPipelineConfig("user-1", "prov-1")
		cfg.ID = "pipeline-default"
		store.addConfig(cfg)

		registry := &fakeRegistry{}
		extractor := &fakeExtractor{entities: []string{"Watson Assistant", "IBM Cloud"}}
		searcher := &fakeSearcher{results: watsonChunks(6)}
		reranker := &fakeReranker{}

		executor := NewExecutor(standardStages(store, registry, extractor, searcher, reranker, true)...)
		rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1",
			WithHistory([]Turn{
				{Role: entity.RoleUser, Content: "Tell me about Watson Assistant on IBM Cloud"},
				{Role: entity.RoleAssistant, Content: "Watson Assistant is a product."},
			}),
			WithTopKRerank(2),
		)
		return executor.Execute(context.Background(), rc)
	}

	first := run()
	second := run()

	assert.Equal(t, first.RewrittenQuery, second.RewrittenQuery)
	assert.Equal(t, first.QueryResults, second.QueryResults)
	assert.Equal(t, first.Errors, second.Errors)
}
