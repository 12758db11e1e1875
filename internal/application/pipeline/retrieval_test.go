package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalRequiresCollection(t *testing.T) {
	searcher := &fakeSearcher{results: watsonChunks(3)}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("What is IBM Watson?", "", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "collection id is required")
	// 失败时结果保持未设置而非空列表
	assert.Nil(t, rc.QueryResults)
	assert.Zero(t, searcher.calls)
}

func TestRetrievalRequiresQuery(t *testing.T) {
	searcher := &fakeSearcher{results: watsonChunks(3)}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("   ", "col-1", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "rewritten query is required")
	assert.Nil(t, rc.QueryResults)
}

func TestRetrievalSearcherErrorLeavesResultsUnset(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index unavailable")}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "vector search")
	assert.Nil(t, rc.QueryResults)
}

func TestRetrievalPopulatesResults(t *testing.T) {
	searcher := &fakeSearcher{results: watsonChunks(10)}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1", WithTopK(10))

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	require.Len(t, rc.QueryResults, 10)
	assert.Equal(t, "col-1", searcher.gotCollection)
	assert.Equal(t, "What is IBM Watson?", searcher.gotQuery)
	assert.Equal(t, 10, outcome.Metadata["count"])
	assert.Equal(t, 10, outcome.Metadata["top_k"])
}

func TestRetrievalTopKPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		requested  int
		wantTopK   int
	}{
		{name: "request overrides default", configured: 5, requested: 3, wantTopK: 3},
		{name: "falls back to configured default", configured: 7, requested: 0, wantTopK: 7},
		{name: "zero config falls back to built-in default", configured: 0, requested: 0, wantTopK: defaultRetrievalTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{results: watsonChunks(10)}
			stage := NewRetrievalStage(searcher, tt.configured)

			rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1", WithTopK(tt.requested))
			outcome := stage.Execute(context.Background(), rc)

			require.True(t, outcome.Success)
			assert.Equal(t, tt.wantTopK, searcher.gotTopK)
		})
	}
}

func TestRetrievalEmptyResultIsSetNotNil(t *testing.T) {
	searcher := &fakeSearcher{results: nil}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	// 检索执行过但没有命中：空切片而非 nil
	require.NotNil(t, rc.QueryResults)
	assert.Empty(t, rc.QueryResults)
	assert.Equal(t, 0, outcome.Metadata["count"])
}

func TestRetrievalKeepsIndexOrder(t *testing.T) {
	shuffled := []RetrievedChunk{
		{ID: "c", Score: 0.3},
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.5},
	}
	searcher := &fakeSearcher{results: shuffled}
	stage := NewRetrievalStage(searcher, 5)
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	// 阶段不重新排序，保持索引返回的顺序
	assert.Equal(t, shuffled, rc.QueryResults)
}
