// Package query 实现检索增强问答的应用服务：驱动查询管道并生成最终答案
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"

	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/application/prompts"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/domain/service"
	"knowledge-qa-api/pkg/errors"
	"knowledge-qa-api/pkg/logger"
)

var tracer = otel.Tracer("query")

const (
	defaultHistoryTurns  = 10
	defaultPromptChunks  = 10
	defaultPromptRuneCap = 400
)

var defaultPromptRegistry = prompts.NewRegistry()

// AskRequest 一次问答请求
type AskRequest struct {
	Question      string
	CollectionID  string
	UserID        string
	SessionID     string
	PipelineID    string
	TopK          int
	TopKRerank    int
	DisableRerank bool
}

// Result 问答结果，Chunks 为最终送入生成的检索片段
type Result struct {
	Answer         string                    `json:"answer"`
	SessionID      string                    `json:"session_id,omitempty"`
	PipelineID     string                    `json:"pipeline_id"`
	RewrittenQuery string                    `json:"rewritten_query"`
	Chunks         []pipeline.RetrievedChunk `json:"chunks"`
	Metadata       map[string]map[string]any `json:"metadata"`
	Errors         []string                  `json:"errors,omitempty"`
	Status         string                    `json:"status"`
	ExecutionTime  time.Duration             `json:"-"`
}

// Service 把查询管道、答案生成与会话持久化组合成完整的问答流程
type Service struct {
	executor      *pipeline.Executor
	store         pipeline.ConfigStore
	providers     repository.LLMProviderRepository
	collections   repository.CollectionRepository
	conversations *conversation.Service
	factory       conversation.ChatModelFactory

	historyTurns  int
	promptChunks  int
	promptRuneCap int
}

func NewService(
	executor *pipeline.Executor,
	store pipeline.ConfigStore,
	providers repository.LLMProviderRepository,
	collections repository.CollectionRepository,
	conversations *conversation.Service,
	factory conversation.ChatModelFactory,
) *Service {
	return &Service{
		executor:      executor,
		store:         store,
		providers:     providers,
		collections:   collections,
		conversations: conversations,
		factory:       factory,
		historyTurns:  defaultHistoryTurns,
		promptChunks:  defaultPromptChunks,
		promptRuneCap: defaultPromptRuneCap,
	}
}

// SetLimits 覆盖历史轮数与提示词上下文截断参数，<=0 的值保持默认
func (s *Service) SetLimits(historyTurns, promptChunks, promptRuneCap int) {
	if historyTurns > 0 {
		s.historyTurns = historyTurns
	}
	if promptChunks > 0 {
		s.promptChunks = promptChunks
	}
	if promptRuneCap > 0 {
		s.promptRuneCap = promptRuneCap
	}
}

// Ask 执行一次完整问答：校验、管道执行、答案生成、会话持久化。
// 管道内单个阶段失败不会中断问答，只有管道解析失败才是终态错误
func (s *Service) Ask(ctx context.Context, req *AskRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "query.Ask")
	defer span.End()

	rc, err := s.runPipeline(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.generateAnswer(ctx, rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLLMCallFailed, "生成回答失败")
	}

	if rc.SessionID != "" && s.conversations != nil {
		s.recordUserTurn(ctx, rc)
		s.RecordAssistantTurn(ctx, rc, answer)
	}

	return buildResult(rc, answer), nil
}

// AskStream 与 Ask 相同的管道流程，但答案以流式返回。
// 返回的 RequestContext 供调用方先推送检索元数据；
// 用户轮次已持久化，助手轮次需在流结束后调用 RecordAssistantTurn
func (s *Service) AskStream(ctx context.Context, req *AskRequest) (*schema.StreamReader[*schema.Message], *pipeline.RequestContext, error) {
	ctx, span := tracer.Start(ctx, "query.AskStream")
	defer span.End()

	rc, err := s.runPipeline(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	genCtx, chatModel, msgs, opts, err := s.prepareGeneration(ctx, rc)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeLLMCallFailed, "准备生成失败")
	}

	reader, err := chatModel.Stream(genCtx, msgs, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeLLMCallFailed, "生成回答失败")
	}

	if rc.SessionID != "" && s.conversations != nil {
		s.recordUserTurn(ctx, rc)
	}
	return reader, rc, nil
}

// runPipeline 校验请求并驱动查询管道
func (s *Service) runPipeline(ctx context.Context, req *AskRequest) (*pipeline.RequestContext, error) {
	if req == nil {
		return nil, errors.New(errors.CodeInvalidParam, "request is required")
	}
	req.Question = strings.TrimSpace(req.Question)
	req.CollectionID = strings.TrimSpace(req.CollectionID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.PipelineID = strings.TrimSpace(req.PipelineID)

	if req.Question == "" {
		return nil, errors.New(errors.CodeInvalidParam, "question is required")
	}
	if req.CollectionID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "collection id is required")
	}
	if req.UserID == "" {
		return nil, errors.New(errors.CodeInvalidParam, "user id is required")
	}

	if err := s.checkCollection(ctx, req); err != nil {
		return nil, err
	}
	s.fillOptionsFromConfig(ctx, req)

	opts := []pipeline.Option{
		pipeline.WithSessionID(req.SessionID),
		pipeline.WithPipelineID(req.PipelineID),
		pipeline.WithTopK(req.TopK),
		pipeline.WithTopKRerank(req.TopKRerank),
	}
	if req.DisableRerank {
		opts = append(opts, pipeline.WithRerankDisabled())
	}
	if history := s.loadHistory(ctx, req.SessionID); len(history) > 0 {
		opts = append(opts, pipeline.WithHistory(history))
	}

	rc := pipeline.NewRequestContext(req.Question, req.CollectionID, req.UserID, opts...)
	s.executor.Execute(ctx, rc)

	if pipeline.RunStatus(rc) == pipeline.RunStatusFailed {
		return nil, terminalError(rc)
	}
	return rc, nil
}

// checkCollection 校验集合存在、归属与状态
func (s *Service) checkCollection(ctx context.Context, req *AskRequest) error {
	if s.collections == nil {
		return nil
	}
	col, err := s.collections.GetByID(ctx, req.CollectionID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "获取集合失败")
	}
	if col == nil {
		return errors.ErrCollectionNotFound
	}
	if col.UserID != req.UserID {
		return errors.ErrForbidden
	}
	if !col.IsActive() {
		return errors.New(errors.CodeInvalidParam, "collection is archived")
	}
	return nil
}

// fillOptionsFromConfig 当请求显式指定管道且未给出检索参数时，
// 用该管道配置里的参数补全。请求参数始终优先
func (s *Service) fillOptionsFromConfig(ctx context.Context, req *AskRequest) {
	if s.store == nil || req.PipelineID == "" {
		return
	}
	cfg, err := s.store.GetPipelineConfig(ctx, req.PipelineID)
	if err != nil || cfg == nil {
		// 解析阶段会对无效管道给出统一失败
		return
	}
	if req.TopK <= 0 {
		req.TopK = cfg.RetrievalTopK
	}
	if req.TopKRerank <= 0 {
		req.TopKRerank = cfg.RerankTopK
	}
	if !cfg.RerankEnabled {
		req.DisableRerank = true
	}
}

// loadHistory 载入会话历史；失败不阻断问答，增强阶段会退化为原文检索
func (s *Service) loadHistory(ctx context.Context, sessionID string) []pipeline.Turn {
	if sessionID == "" || s.conversations == nil {
		return nil
	}
	history, err := s.conversations.History(ctx, sessionID, s.historyTurns)
	if err != nil {
		logger.Warn(ctx, "load conversation history", "session_id", sessionID, "error", err)
		return nil
	}
	return history
}

// generateAnswer 基于检索结果生成最终回答
func (s *Service) generateAnswer(ctx context.Context, rc *pipeline.RequestContext) (string, error) {
	ctx, chatModel, msgs, opts, err := s.prepareGeneration(ctx, rc)
	if err != nil {
		return "", err
	}
	out, err := chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", fmt.Errorf("empty generation response")
	}
	return strings.TrimSpace(out.Content), nil
}

// prepareGeneration 组装生成所需的模型、消息与选项。
// 返回的 context 已注入 workflow/provider 观测标签
func (s *Service) prepareGeneration(ctx context.Context, rc *pipeline.RequestContext) (context.Context, model.BaseChatModel, []*schema.Message, []model.Option, error) {
	if s.factory == nil {
		return ctx, nil, nil, nil, fmt.Errorf("llm factory not configured")
	}

	providerName, temperature := s.generationParams(ctx, rc)
	ctx = service.WithWorkflowProvider(ctx, service.WorkflowAnswer, providerName)

	chatModel, err := s.factory.Get(ctx, providerName)
	if err != nil {
		return ctx, nil, nil, nil, err
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(prompts.PromptAnswerGenV1)
	if err != nil {
		return ctx, nil, nil, nil, err
	}

	contextBlock := BuildPromptContext(rc.QueryResults, s.promptChunks, s.promptRuneCap)
	if contextBlock == "" {
		contextBlock = "（本次检索没有命中任何片段）"
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"context":  contextBlock,
		"question": rc.Question,
	})
	if err != nil {
		return ctx, nil, nil, nil, err
	}

	var opts []model.Option
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}
	return ctx, chatModel, msgs, opts, nil
}

// generationParams 从已解析的管道配置取生成参数
func (s *Service) generationParams(ctx context.Context, rc *pipeline.RequestContext) (providerName string, temperature float64) {
	if s.store == nil || rc.PipelineID == "" {
		return "", 0
	}
	cfg, err := s.store.GetPipelineConfig(ctx, rc.PipelineID)
	if err != nil || cfg == nil {
		return "", 0
	}
	if s.providers != nil && cfg.ProviderID != "" {
		provider, err := s.providers.GetByID(ctx, cfg.ProviderID)
		if err == nil && provider != nil {
			providerName = provider.Name
		}
	}
	return providerName, cfg.Temperature
}

// recordUserTurn 持久化用户提问轮次，带上增强阶段提取的实体
func (s *Service) recordUserTurn(ctx context.Context, rc *pipeline.RequestContext) {
	var entities []string
	if md, ok := rc.Metadata[pipeline.StageEnhancement]; ok {
		if extracted, ok := md["entities"].([]string); ok {
			entities = extracted
		}
	}
	if _, err := s.conversations.AppendTurn(ctx, rc.SessionID, entity.RoleUser, rc.Question, entities, nil); err != nil {
		logger.Warn(ctx, "record user turn", "session_id", rc.SessionID, "error", err)
	}
}

// RecordAssistantTurn 持久化助手回答轮次。流式场景由调用方在流结束后调用
func (s *Service) RecordAssistantTurn(ctx context.Context, rc *pipeline.RequestContext, answer string) {
	if rc == nil || rc.SessionID == "" || s.conversations == nil || strings.TrimSpace(answer) == "" {
		return
	}

	meta, err := json.Marshal(map[string]any{
		"pipeline_id":       rc.PipelineID,
		"rewritten_query":   rc.RewrittenQuery,
		"chunk_count":       len(rc.QueryResults),
		"status":            pipeline.RunStatus(rc),
		"errors":            rc.Errors,
		"execution_time_ms": rc.ExecutionTime.Milliseconds(),
	})
	if err != nil {
		meta = nil
	}
	if _, err := s.conversations.AppendTurn(ctx, rc.SessionID, entity.RoleAssistant, answer, nil, meta); err != nil {
		logger.Warn(ctx, "record assistant turn", "session_id", rc.SessionID, "error", err)
	}
}

// terminalError 把管道解析失败映射为对外错误
func terminalError(rc *pipeline.RequestContext) error {
	if len(rc.Errors) == 0 {
		return errors.ErrQueryFailed
	}
	first := rc.Errors[0]
	switch {
	case strings.Contains(first, "no LLM provider available"):
		return errors.ErrProviderNotConfigured
	case strings.Contains(first, "pipeline not found"):
		return errors.ErrPipelineNotFound
	default:
		return errors.New(errors.CodeQueryFailed, first)
	}
}

// buildResult 把执行完的上下文转换为响应
func buildResult(rc *pipeline.RequestContext, answer string) *Result {
	return &Result{
		Answer:         answer,
		SessionID:      rc.SessionID,
		PipelineID:     rc.PipelineID,
		RewrittenQuery: rc.RewrittenQuery,
		Chunks:         rc.QueryResults,
		Metadata:       rc.Metadata,
		Errors:         rc.Errors,
		Status:         pipeline.RunStatus(rc),
		ExecutionTime:  rc.ExecutionTime,
	}
}
