package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankingNoOpVariants(t *testing.T) {
	tests := []struct {
		name  string
		stage func(r Reranker) *RerankingStage
		opts  []Option
	}{
		{
			name:  "disabled process-wide",
			stage: func(r Reranker) *RerankingStage { return NewRerankingStage(r, false) },
		},
		{
			name:  "disabled per-request",
			stage: func(r Reranker) *RerankingStage { return NewRerankingStage(r, true) },
			opts:  []Option{WithRerankDisabled()},
		},
		{
			name:  "no reranker configured",
			stage: func(Reranker) *RerankingStage { return NewRerankingStage(nil, true) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reranker := &fakeReranker{}
			retrieved := watsonChunks(4)

			rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1", tt.opts...)
			rc.QueryResults = retrieved

			executor := NewExecutor(tt.stage(reranker))
			executor.Execute(context.Background(), rc)

			// 无操作：成功、结果原样、元数据里不出现 reranking 键
			require.Empty(t, rc.Errors)
			assert.Equal(t, retrieved, rc.QueryResults)
			assert.Zero(t, reranker.calls)
			_, present := rc.Metadata[StageReranking]
			assert.False(t, present)
		})
	}
}

func TestRerankingRequiresQuery(t *testing.T) {
	stage := NewRerankingStage(&fakeReranker{}, true)
	rc := NewRequestContext("   ", "col-1", "user-1")
	rc.QueryResults = watsonChunks(3)

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "rewritten query is required")
}

func TestRerankingRequiresQueryResults(t *testing.T) {
	stage := NewRerankingStage(&fakeReranker{}, true)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "query results are required")
	assert.Nil(t, rc.QueryResults)
}

func TestRerankingReplacesResults(t *testing.T) {
	reranker := &fakeReranker{}
	stage := NewRerankingStage(reranker, true)

	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1", WithTopKRerank(2))
	rc.QueryResults = []RetrievedChunk{
		{ID: "low", Score: 0.2},
		{ID: "high", Score: 0.9},
		{ID: "mid", Score: 0.5},
	}

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	require.Len(t, rc.QueryResults, 2)
	assert.Equal(t, "high", rc.QueryResults[0].ID)
	assert.Equal(t, "mid", rc.QueryResults[1].ID)
	assert.Equal(t, "What is IBM Watson?", reranker.gotQuery)

	assert.Equal(t, 3, outcome.Metadata["original_count"])
	assert.Equal(t, 2, outcome.Metadata["reranked_count"])
	assert.Equal(t, "cross_encoder", outcome.Metadata["method"])
}

func TestRerankingZeroTopKKeepsAll(t *testing.T) {
	stage := NewRerankingStage(&fakeReranker{}, true)

	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")
	rc.QueryResults = watsonChunks(5)

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	// top_k_rerank 为零表示不截断
	assert.Len(t, rc.QueryResults, 5)
	assert.Equal(t, 5, outcome.Metadata["reranked_count"])
}

func TestRerankingNeverGrowsResults(t *testing.T) {
	reranker := &fakeReranker{returns: watsonChunks(7)}
	stage := NewRerankingStage(reranker, true)

	retrieved := watsonChunks(3)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")
	rc.QueryResults = retrieved

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "reranker returned 7 results for 3 candidates")
	assert.Equal(t, retrieved, rc.QueryResults)
}

func TestRerankingErrorLeavesResultsUntouched(t *testing.T) {
	reranker := &fakeReranker{err: errors.New("model timeout")}
	stage := NewRerankingStage(reranker, true)

	retrieved := watsonChunks(3)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")
	rc.QueryResults = retrieved

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "rerank")
	assert.Equal(t, retrieved, rc.QueryResults)
}

func TestRerankingEmptyRetrievalShortCircuits(t *testing.T) {
	reranker := &fakeReranker{}
	stage := NewRerankingStage(reranker, true)

	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")
	rc.QueryResults = []RetrievedChunk{}

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Zero(t, reranker.calls)
	assert.Equal(t, 0, outcome.Metadata["original_count"])
	assert.Equal(t, 0, outcome.Metadata["reranked_count"])
	assert.Equal(t, "cross_encoder", outcome.Metadata["method"])
}
