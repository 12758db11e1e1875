package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStage 可编程的测试阶段
type stubStage struct {
	name    string
	outcome Outcome
	execute func(ctx context.Context, rc *RequestContext) Outcome
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Execute(ctx context.Context, rc *RequestContext) Outcome {
	if s.execute != nil {
		return s.execute(ctx, rc)
	}
	return s.outcome
}

func TestExecutorContinuesPastFailure(t *testing.T) {
	first := &stubStage{name: "first", outcome: succeed(map[string]any{"step": 1})}
	middle := &stubStage{name: "middle", outcome: fail("boom")}
	last := &stubStage{name: "last", outcome: succeed(map[string]any{"step": 3})}

	executor := NewExecutor(first, middle, last)
	rc := executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))

	assert.Contains(t, rc.Metadata, "first")
	assert.Contains(t, rc.Metadata, "last")
	assert.NotContains(t, rc.Metadata, "middle")

	require.Len(t, rc.Errors, 1)
	assert.Equal(t, "middle failed: boom", rc.Errors[0])
}

func TestExecutorRunsStagesInOrder(t *testing.T) {
	var order []string
	mk := func(name string) *stubStage {
		return &stubStage{
			name: name,
			execute: func(ctx context.Context, rc *RequestContext) Outcome {
				order = append(order, name)
				return succeed(nil)
			},
		}
	}

	executor := NewExecutor(mk("a"), mk("b"), mk("c"))
	executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestExecutorSetsExecutionTime(t *testing.T) {
	slow := &stubStage{
		name: "slow",
		execute: func(ctx context.Context, rc *RequestContext) Outcome {
			time.Sleep(5 * time.Millisecond)
			return succeed(nil)
		},
	}

	executor := NewExecutor(slow)
	rc := executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))

	assert.GreaterOrEqual(t, rc.ExecutionTime, 5*time.Millisecond)
}

func TestExecutorFailedStageMetadataIsDropped(t *testing.T) {
	failing := &stubStage{
		name:    "failing",
		outcome: Outcome{Success: false, Error: "bad", Metadata: map[string]any{"should": "vanish"}},
	}

	executor := NewExecutor(failing)
	rc := executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))

	assert.NotContains(t, rc.Metadata, "failing")
	require.Len(t, rc.Errors, 1)
	assert.Equal(t, "failing failed: bad", rc.Errors[0])
}

func TestExecutorAddRemoveStage(t *testing.T) {
	a := &stubStage{name: "a", outcome: succeed(map[string]any{"hit": true})}
	b := &stubStage{name: "b", outcome: succeed(map[string]any{"hit": true})}

	executor := NewExecutor(a)
	executor.AddStage(b)
	assert.Equal(t, []string{"a", "b"}, executor.Stages())

	rc := executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))
	assert.Contains(t, rc.Metadata, "a")
	assert.Contains(t, rc.Metadata, "b")

	require.True(t, executor.RemoveStage("a"))
	assert.False(t, executor.RemoveStage("a"))
	assert.Equal(t, []string{"b"}, executor.Stages())

	rc = executor.Execute(context.Background(), NewRequestContext("q", "col", "user"))
	assert.NotContains(t, rc.Metadata, "a")
	assert.Contains(t, rc.Metadata, "b")
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name string
		rc   *RequestContext
		want string
	}{
		{
			name: "no errors",
			rc:   &RequestContext{PipelineID: "p1"},
			want: "ok",
		},
		{
			name: "errors without resolved pipeline",
			rc:   &RequestContext{Errors: []string{"pipeline_resolution failed: no LLM provider available"}},
			want: "failed",
		},
		{
			name: "errors with resolved pipeline",
			rc:   &RequestContext{PipelineID: "p1", Errors: []string{"query_enhancement failed: extract entities: timeout"}},
			want: "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunStatus(tt.rc))
		})
	}
}
