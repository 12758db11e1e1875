package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
)

func TestEnhancementNoHistoryFallsBack(t *testing.T) {
	extractor := &fakeExtractor{entities: []string{"ignored"}}
	stage := NewEnhancementStage(extractor)
	rc := NewRequestContext("What is IBM Watson?", "col", "user")

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Equal(t, "What is IBM Watson?", rc.RewrittenQuery)
	assert.Equal(t, false, outcome.Metadata["enhanced"])
	assert.Equal(t, "no_context", outcome.Metadata["reason"])
	assert.Zero(t, extractor.calls, "extractor must not be called without context")
}

func TestEnhancementUsesOnlyUserTurns(t *testing.T) {
	extractor := &fakeExtractor{}
	stage := NewEnhancementStage(extractor)
	rc := NewRequestContext("What is IBM Watson?", "col", "user",
		WithHistory([]Turn{
			{Role: entity.RoleUser, Content: "Tell me about Watson Assistant"},
			{Role: entity.RoleAssistant, Content: "POLLUTED ANSWER TEXT"},
			{Role: entity.RoleUser, Content: "And about IBM Cloud"},
		}),
	)

	stage.Execute(context.Background(), rc)

	require.Equal(t, 1, extractor.calls)
	assert.Contains(t, extractor.gotText, "Watson Assistant")
	assert.Contains(t, extractor.gotText, "IBM Cloud")
	assert.NotContains(t, extractor.gotText, "POLLUTED ANSWER TEXT")
}

func TestEnhancementAppendsNewEntities(t *testing.T) {
	extractor := &fakeExtractor{entities: []string{"Watson", "IBM Cloud", "ibm cloud", "  "}}
	stage := NewEnhancementStage(extractor)
	rc := NewRequestContext("What is IBM Watson?", "col", "user",
		WithHistory([]Turn{{Role: entity.RoleUser, Content: "earlier question"}}),
	)

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	// "Watson" 已出现在问题中被去掉，"ibm cloud" 为重复项
	assert.Equal(t, "What is IBM Watson? IBM Cloud", rc.RewrittenQuery)
	assert.Equal(t, true, outcome.Metadata["enhanced"])
	assert.Equal(t, 1, outcome.Metadata["entity_count"])
}

func TestEnhancementAllEntitiesAlreadyPresent(t *testing.T) {
	extractor := &fakeExtractor{entities: []string{"IBM", "Watson"}}
	stage := NewEnhancementStage(extractor)
	rc := NewRequestContext("What is IBM Watson?", "col", "user",
		WithHistory([]Turn{{Role: entity.RoleUser, Content: "earlier question"}}),
	)

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Equal(t, "What is IBM Watson?", rc.RewrittenQuery)
	assert.Equal(t, false, outcome.Metadata["enhanced"])
	assert.Equal(t, "no_new_entities", outcome.Metadata["reason"])
}

func TestEnhancementFailureKeepsVerbatimQuestion(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("model timeout")}
	stage := NewEnhancementStage(extractor)
	rc := NewRequestContext("What is IBM Watson?", "col", "user",
		WithHistory([]Turn{{Role: entity.RoleUser, Content: "earlier question"}}),
	)

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "extract entities")
	// 失败不修改查询，管道仍可用问题原文继续检索
	assert.Equal(t, "What is IBM Watson?", rc.RewrittenQuery)
}

func TestEnhancementFailureDoesNotBlockRetrieval(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("model timeout")}
	searcher := &fakeSearcher{results: watsonChunks(3)}

	executor := NewExecutor(
		NewEnhancementStage(extractor),
		NewRetrievalStage(searcher, 5),
	)
	rc := executor.Execute(context.Background(), NewRequestContext("What is IBM Watson?", "col-1", "user-1",
		WithHistory([]Turn{{Role: entity.RoleUser, Content: "earlier question"}}),
	))

	require.Len(t, rc.Errors, 1)
	assert.Contains(t, rc.Errors[0], "query_enhancement failed")
	require.Len(t, rc.QueryResults, 3)
	assert.Equal(t, "What is IBM Watson?", searcher.gotQuery)
}
