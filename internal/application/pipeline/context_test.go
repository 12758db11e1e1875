package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
)

func TestNewRequestContext(t *testing.T) {
	rc := NewRequestContext("What is IBM Watson?", "col-1", "user-1")

	assert.Equal(t, "What is IBM Watson?", rc.Question)
	assert.Equal(t, "col-1", rc.CollectionID)
	assert.Equal(t, "user-1", rc.UserID)

	// 初始时改写查询等于问题原文，结果集尚未设置
	assert.Equal(t, rc.Question, rc.RewrittenQuery)
	assert.Nil(t, rc.QueryResults)
	assert.Empty(t, rc.Errors)
	assert.NotNil(t, rc.Metadata)
	assert.Empty(t, rc.Metadata)
	assert.Zero(t, rc.ExecutionTime)
}

func TestRequestContextOptions(t *testing.T) {
	rc := NewRequestContext("q", "col-1", "user-1",
		WithSessionID("sess-1"),
		WithPipelineID("pipe-1"),
		WithTopK(15),
		WithTopKRerank(4),
		WithRerankDisabled(),
		WithHistory([]Turn{{Role: entity.RoleUser, Content: "hello"}}),
	)

	assert.Equal(t, "sess-1", rc.SessionID)
	assert.Equal(t, "pipe-1", rc.Options.PipelineID)
	assert.Equal(t, 15, rc.Options.TopK)
	assert.Equal(t, 4, rc.Options.TopKRerank)
	assert.True(t, rc.Options.DisableRerank)
	require.Len(t, rc.History, 1)
}

func TestUserTurnsText(t *testing.T) {
	tests := []struct {
		name    string
		history []Turn
		want    string
	}{
		{
			name: "only user turns are joined",
			history: []Turn{
				{Role: entity.RoleUser, Content: "first question"},
				{Role: entity.RoleAssistant, Content: "assistant answer"},
				{Role: entity.RoleUser, Content: "second question"},
			},
			want: "first question\nsecond question",
		},
		{
			name: "system turns are excluded",
			history: []Turn{
				{Role: entity.RoleSystem, Content: "you are helpful"},
				{Role: entity.RoleUser, Content: "question"},
			},
			want: "question",
		},
		{
			name: "blank user turns are dropped",
			history: []Turn{
				{Role: entity.RoleUser, Content: "   "},
				{Role: entity.RoleUser, Content: " trimmed "},
			},
			want: "trimmed",
		},
		{
			name:    "empty history",
			history: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRequestContext("q", "col", "user", WithHistory(tt.history))
			assert.Equal(t, tt.want, rc.UserTurnsText())
		})
	}
}

func TestSetStageMetadata(t *testing.T) {
	rc := NewRequestContext("q", "col", "user")

	rc.SetStageMetadata("retrieval", map[string]any{"count": 3})
	assert.Equal(t, map[string]any{"count": 3}, rc.Metadata["retrieval"])

	// nil 元数据不产生键
	rc.SetStageMetadata("reranking", nil)
	assert.NotContains(t, rc.Metadata, "reranking")
}

func TestAddError(t *testing.T) {
	rc := NewRequestContext("q", "col", "user")
	assert.False(t, rc.HasError())

	rc.AddError("retrieval", "vector search: index unavailable")
	rc.AddError("reranking", "rerank: timeout")

	require.Len(t, rc.Errors, 2)
	assert.Equal(t, "retrieval failed: vector search: index unavailable", rc.Errors[0])
	assert.Equal(t, "reranking failed: rerank: timeout", rc.Errors[1])
	assert.True(t, rc.HasError())
}
