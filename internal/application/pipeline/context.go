// Package pipeline 实现查询管道核心：请求上下文、阶段契约与执行器。
// 一次提问对应一个 RequestContext，按固定顺序经过管道解析、查询增强、
// 向量检索与重排序四个阶段，阶段失败不中断整体执行。
package pipeline

import (
	"strings"
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

// Turn 会话历史中的一轮消息，由调用方在构造上下文时装入
type Turn struct {
	Role    entity.Role
	Content string
}

// RequestOptions 请求级配置，构造后不再变更
type RequestOptions struct {
	// PipelineID 显式指定的管道配置 ID，优先于用户默认管道
	PipelineID string

	// TopK 检索候选数量，0 表示使用系统默认值
	TopK int

	// TopKRerank 重排序截断数量，0 表示不截断（由重排序方决定）
	TopKRerank int

	// DisableRerank 请求级关闭重排序
	DisableRerank bool
}

// RetrievedChunk 检索到的文本块及其相关性得分
type RetrievedChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Score      float32
}

// RequestContext 单次提问的可变状态，由执行器独占并依次传入各阶段。
// Question、CollectionID、UserID、SessionID、History、Options 为构造期输入，
// 阶段只读；其余字段由对应阶段按约定写入：
//   - PipelineID 由管道解析阶段设置，设置后不再变更
//   - RewrittenQuery 初始等于 Question，至多被查询增强覆盖一次
//   - QueryResults 在检索前为 nil（区别于检索命中为空），重排序只会整体替换且不增长
//   - Metadata 每阶段只写自己的键，单次执行内不重复写入
//   - Errors 只追加，不清除
//   - ExecutionTime 由执行器在最后一个阶段结束后写入一次
type RequestContext struct {
	Question     string
	CollectionID string
	UserID       string
	SessionID    string
	History      []Turn
	Options      RequestOptions

	PipelineID     string
	RewrittenQuery string
	QueryResults   []RetrievedChunk
	Metadata       map[string]map[string]any
	Errors         []string
	ExecutionTime  time.Duration
}

// Option 构造 RequestContext 时的可选配置
type Option func(*RequestContext)

// WithSessionID 关联会话，查询增强会使用该会话的历史
func WithSessionID(sessionID string) Option {
	return func(rc *RequestContext) {
		rc.SessionID = sessionID
	}
}

// WithHistory 装入会话历史
func WithHistory(history []Turn) Option {
	return func(rc *RequestContext) {
		rc.History = history
	}
}

// WithPipelineID 显式指定管道配置
func WithPipelineID(pipelineID string) Option {
	return func(rc *RequestContext) {
		rc.Options.PipelineID = pipelineID
	}
}

// WithTopK 指定检索候选数量
func WithTopK(topK int) Option {
	return func(rc *RequestContext) {
		rc.Options.TopK = topK
	}
}

// WithTopKRerank 指定重排序截断数量
func WithTopKRerank(topK int) Option {
	return func(rc *RequestContext) {
		rc.Options.TopKRerank = topK
	}
}

// WithRerankDisabled 请求级关闭重排序
func WithRerankDisabled() Option {
	return func(rc *RequestContext) {
		rc.Options.DisableRerank = true
	}
}

// NewRequestContext 创建请求上下文，RewrittenQuery 初始等于问题原文
func NewRequestContext(question, collectionID, userID string, opts ...Option) *RequestContext {
	rc := &RequestContext{
		Question:       question,
		CollectionID:   collectionID,
		UserID:         userID,
		RewrittenQuery: question,
		Metadata:       make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// SetStageMetadata 写入某阶段的诊断信息，nil 不产生键
func (rc *RequestContext) SetStageMetadata(stage string, metadata map[string]any) {
	if metadata == nil {
		return
	}
	rc.Metadata[stage] = metadata
}

// AddError 追加一条阶段失败记录
func (rc *RequestContext) AddError(stage, errMsg string) {
	rc.Errors = append(rc.Errors, stage+" failed: "+errMsg)
}

// HasError 判断是否存在失败记录
func (rc *RequestContext) HasError() bool {
	return len(rc.Errors) > 0
}

// UserTurnsText 拼接历史中用户角色的消息文本，供查询增强使用；
// 助手消息不参与，避免生成内容反哺查询
func (rc *RequestContext) UserTurnsText() string {
	var parts []string
	for _, turn := range rc.History {
		if turn.Role != entity.RoleUser {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n")
}
