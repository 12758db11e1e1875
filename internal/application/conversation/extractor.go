package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"knowledge-qa-api/internal/application/prompts"
	"knowledge-qa-api/internal/domain/service"
)

// ChatModelFactory 定义对 LLM ChatModel 的最小依赖（port），
// 由基础设施层提供具体实现
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

const maxExtractedEntities = 8

var defaultPromptRegistry = prompts.NewRegistry()

// LLMEntityExtractor 用 LLM 从会话历史中提取对检索有帮助的实体
type LLMEntityExtractor struct {
	factory  ChatModelFactory
	provider string
}

// NewLLMEntityExtractor 创建实体提取器。provider 为空时使用默认 LLM
func NewLLMEntityExtractor(factory ChatModelFactory, provider string) *LLMEntityExtractor {
	return &LLMEntityExtractor{
		factory:  factory,
		provider: provider,
	}
}

// EntitiesFromContext 从用户历史提问文本中提取实体。
// 空文本直接返回 nil，不算错误
func (e *LLMEntityExtractor) EntitiesFromContext(ctx context.Context, userText string) ([]string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, nil
	}
	if e == nil || e.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}

	ctx = service.WithWorkflowProvider(ctx, service.WorkflowEntityExtract, e.provider)
	chatModel, err := e.factory.Get(ctx, e.provider)
	if err != nil {
		return nil, err
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(prompts.PromptEntityExtractV1)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"conversation": userText,
	})
	if err != nil {
		return nil, err
	}

	out, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty entity extraction response")
	}
	return parseEntityList(out.Content)
}

// parseEntityList 解析模型输出的实体数组，兼容对象包装与多余文本
func parseEntityList(rawText string) ([]string, error) {
	jsonText := extractJSONValue(rawText)
	if strings.TrimSpace(jsonText) == "" {
		return nil, fmt.Errorf("empty entity extraction output")
	}

	var entities []string
	if err := json.Unmarshal([]byte(jsonText), &entities); err != nil {
		// 部分模型会输出 {"entities": [...]} 形式
		var wrapped struct {
			Entities []string `json:"entities"`
		}
		if wrapErr := json.Unmarshal([]byte(jsonText), &wrapped); wrapErr != nil {
			return nil, fmt.Errorf("failed to parse entity json: %w", err)
		}
		entities = wrapped.Entities
	}

	out := make([]string, 0, len(entities))
	for _, ent := range entities {
		ent = strings.TrimSpace(ent)
		if ent == "" {
			continue
		}
		out = append(out, ent)
		if len(out) >= maxExtractedEntities {
			break
		}
	}
	return out, nil
}
