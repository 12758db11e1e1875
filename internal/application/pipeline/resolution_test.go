package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
)

func TestResolutionExplicitPipeline(t *testing.T) {
	store := newFakeConfigStore()
	store.addConfig(&entity.PipelineConfig{ID: "pipe-9", UserID: "user-1"})

	stage := NewResolutionStage(store, &fakeRegistry{})
	rc := NewRequestContext("q", "col", "user-1", WithPipelineID("pipe-9"))

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Equal(t, "pipe-9", rc.PipelineID)
	assert.Equal(t, "explicit", outcome.Metadata["source"])
	assert.Zero(t, store.created)
}

func TestResolutionExplicitPipelineNotFound(t *testing.T) {
	stage := NewResolutionStage(newFakeConfigStore(), &fakeRegistry{})
	rc := NewRequestContext("q", "col", "user-1", WithPipelineID("missing"))

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "pipeline not found: missing")
	assert.Empty(t, rc.PipelineID)
}

func TestResolutionUserDefault(t *testing.T) {
	store := newFakeConfigStore()
	cfg := entity.NewDefaultPipelineConfig("user-1", "prov-1")
	cfg.ID = "pipe-default"
	store.addConfig(cfg)

	stage := NewResolutionStage(store, &fakeRegistry{})
	rc := NewRequestContext("q", "col", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Equal(t, "pipe-default", rc.PipelineID)
	assert.Equal(t, "user_default", outcome.Metadata["source"])
	assert.Zero(t, store.created)
}

func TestResolutionAutoCreatesDefault(t *testing.T) {
	store := newFakeConfigStore()
	registry := &fakeRegistry{provider: &entity.LLMProvider{ID: "prov-1", Name: "openai"}}

	stage := NewResolutionStage(store, registry)
	rc := NewRequestContext("q", "col", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.True(t, outcome.Success)
	assert.Equal(t, 1, store.created)
	assert.Equal(t, "auto_created", outcome.Metadata["source"])
	assert.NotEmpty(t, rc.PipelineID)

	// 新建的配置必须能通过后续回读校验
	fetched, err := store.GetPipelineConfig(context.Background(), rc.PipelineID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.IsDefault)
	assert.Equal(t, "prov-1", fetched.ProviderID)
}

func TestResolutionNoProvider(t *testing.T) {
	stage := NewResolutionStage(newFakeConfigStore(), &fakeRegistry{})
	rc := NewRequestContext("q", "col", "user-1")

	outcome := stage.Execute(context.Background(), rc)

	require.False(t, outcome.Success)
	assert.Equal(t, "no LLM provider available", outcome.Error)
	assert.Empty(t, rc.PipelineID)
}

func TestResolutionNoProviderThroughExecutor(t *testing.T) {
	executor := NewExecutor(NewResolutionStage(newFakeConfigStore(), &fakeRegistry{}))
	rc := executor.Execute(context.Background(), NewRequestContext("q", "col", "user-1"))

	require.Len(t, rc.Errors, 1)
	assert.Equal(t, "pipeline_resolution failed: no LLM provider available", rc.Errors[0])
	assert.Empty(t, rc.PipelineID)
	assert.NotContains(t, rc.Metadata, StageResolution)
}

func TestResolutionStoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(store *fakeConfigStore, registry *fakeRegistry)
		errPart string
	}{
		{
			name: "default pipeline lookup fails",
			mutate: func(store *fakeConfigStore, registry *fakeRegistry) {
				store.defaultErr = errors.New("connection reset")
			},
			errPart: "fetch default pipeline",
		},
		{
			name: "provider lookup fails",
			mutate: func(store *fakeConfigStore, registry *fakeRegistry) {
				registry.err = errors.New("registry down")
			},
			errPart: "fetch default provider",
		},
		{
			name: "create default pipeline fails",
			mutate: func(store *fakeConfigStore, registry *fakeRegistry) {
				registry.provider = &entity.LLMProvider{ID: "prov-1"}
				store.createErr = errors.New("insert failed")
			},
			errPart: "create default pipeline",
		},
		{
			name: "validation fetch fails",
			mutate: func(store *fakeConfigStore, registry *fakeRegistry) {
				registry.provider = &entity.LLMProvider{ID: "prov-1"}
				store.getErr = errors.New("connection reset")
			},
			errPart: "fetch pipeline config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeConfigStore()
			registry := &fakeRegistry{}
			tt.mutate(store, registry)

			stage := NewResolutionStage(store, registry)
			rc := NewRequestContext("q", "col", "user-1")

			outcome := stage.Execute(context.Background(), rc)

			require.False(t, outcome.Success)
			assert.Contains(t, outcome.Error, tt.errPart)
			assert.Empty(t, rc.PipelineID)
		})
	}
}
