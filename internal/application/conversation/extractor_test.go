package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	response string
	err      error

	gotMsgs []*schema.Message
	calls   int
}

func (m *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	m.gotMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.response, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in fake")
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func TestExtractorEmptyTextReturnsNil(t *testing.T) {
	chat := &fakeChatModel{}
	extractor := NewLLMEntityExtractor(&fakeFactory{model: chat}, "")

	entities, err := extractor.EntitiesFromContext(context.Background(), "   ")

	require.NoError(t, err)
	assert.Nil(t, entities)
	assert.Zero(t, chat.calls)
}

func TestExtractorParsesArrayWithSurroundingText(t *testing.T) {
	chat := &fakeChatModel{response: "提取结果如下：\n[\"IBM Watson\", \"Kubernetes\"]\n以上。"}
	extractor := NewLLMEntityExtractor(&fakeFactory{model: chat}, "")

	entities, err := extractor.EntitiesFromContext(context.Background(), "Tell me about IBM Watson on Kubernetes")

	require.NoError(t, err)
	assert.Equal(t, []string{"IBM Watson", "Kubernetes"}, entities)

	// 会话文本进入了 Prompt
	require.NotEmpty(t, chat.gotMsgs)
	var joined string
	for _, msg := range chat.gotMsgs {
		joined += msg.Content
	}
	assert.Contains(t, joined, "Tell me about IBM Watson on Kubernetes")
}

func TestExtractorModelError(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("rate limited")}
	extractor := NewLLMEntityExtractor(&fakeFactory{model: chat}, "")

	_, err := extractor.EntitiesFromContext(context.Background(), "some history")
	require.Error(t, err)
}

func TestExtractorFactoryError(t *testing.T) {
	extractor := NewLLMEntityExtractor(&fakeFactory{err: errors.New("provider missing")}, "")

	_, err := extractor.EntitiesFromContext(context.Background(), "some history")
	require.Error(t, err)
}

func TestParseEntityList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "plain array",
			raw:  `["Watson", "IBM Cloud"]`,
			want: []string{"Watson", "IBM Cloud"},
		},
		{
			name: "wrapped object",
			raw:  `{"entities": ["Watson"]}`,
			want: []string{"Watson"},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n[\"Watson\"]\n```",
			want: []string{"Watson"},
		},
		{
			name: "blank entries dropped",
			raw:  `["Watson", "  ", ""]`,
			want: []string{"Watson"},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []string{},
		},
		{
			name:    "no json at all",
			raw:     "I could not find any entities.",
			wantErr: true,
		},
		{
			name:    "empty output",
			raw:     "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntityList(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntityListCapsCount(t *testing.T) {
	raw := `["e1","e2","e3","e4","e5","e6","e7","e8","e9","e10"]`
	got, err := parseEntityList(raw)

	require.NoError(t, err)
	assert.Len(t, got, maxExtractedEntities)
	assert.Equal(t, "e1", got[0])
}

func TestExtractJSONValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare array", raw: `["a"]`, want: `["a"]`},
		{name: "prefix and suffix", raw: `result: ["a"] done`, want: `["a"]`},
		{name: "object", raw: `{"k": 1}`, want: `{"k": 1}`},
		{name: "array before object wins", raw: `["a", {"k": 1}]`, want: `["a", {"k": 1}]`},
		{name: "no json returns original", raw: "nothing here", want: "nothing here"},
		{name: "empty", raw: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONValue(tt.raw))
		})
	}
}
