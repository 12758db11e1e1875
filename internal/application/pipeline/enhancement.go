package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// EnhancementStage 查询增强阶段：基于会话历史中的用户消息抽取实体，
// 将其补充进检索查询。没有可用上下文时回退为问题原文；
// 抽取失败会在结果中报告，但 RewrittenQuery 保持原文，管道继续执行
type EnhancementStage struct {
	extractor EntityExtractor
}

// NewEnhancementStage 创建查询增强阶段
func NewEnhancementStage(extractor EntityExtractor) *EnhancementStage {
	return &EnhancementStage{extractor: extractor}
}

// Name 实现 Stage 接口
func (s *EnhancementStage) Name() string {
	return StageEnhancement
}

// Execute 实现 Stage 接口
func (s *EnhancementStage) Execute(ctx context.Context, rc *RequestContext) Outcome {
	userText := rc.UserTurnsText()
	if userText == "" || s.extractor == nil {
		return succeed(map[string]any{
			"enhanced": false,
			"reason":   "no_context",
		})
	}

	entities, err := s.extractor.EntitiesFromContext(ctx, userText)
	if err != nil {
		return fail(fmt.Sprintf("extract entities: %v", err))
	}

	added := appendMissingTerms(rc.Question, entities)
	if len(added) == 0 {
		return succeed(map[string]any{
			"enhanced": false,
			"reason":   "no_new_entities",
		})
	}

	rc.RewrittenQuery = rc.Question + " " + strings.Join(added, " ")
	return succeed(map[string]any{
		"enhanced":     true,
		"entity_count": len(added),
		"entities":     added,
	})
}

// appendMissingTerms 过滤掉已出现在问题中的实体，保持原有顺序并去重
func appendMissingTerms(question string, entities []string) []string {
	lowered := strings.ToLower(question)
	seen := make(map[string]struct{}, len(entities))

	var added []string
	for _, raw := range entities {
		term := strings.TrimSpace(raw)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if strings.Contains(lowered, key) {
			continue
		}
		added = append(added, term)
	}
	return added
}
