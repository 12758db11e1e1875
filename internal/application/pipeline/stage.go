package pipeline

import "context"

// 阶段名称，同时作为 Metadata 与 Errors 中的标识
const (
	StageResolution  = "pipeline_resolution"
	StageEnhancement = "query_enhancement"
	StageRetrieval   = "retrieval"
	StageReranking   = "reranking"
)

// Outcome 单次阶段执行的结果，由执行器立即消费。
// 阶段内部的任何错误都转换为 Success=false 加描述，不向外抛出
type Outcome struct {
	Success  bool
	Error    string
	Metadata map[string]any
}

// Stage 管道阶段契约。实现只读取上下文并写入自己职责内的字段，
// 除上下文与声明的协作方外没有其他副作用，也不在内部重试
type Stage interface {
	// Name 返回阶段名称，作为元数据键与错误前缀
	Name() string

	// Execute 执行阶段逻辑，失败通过 Outcome 报告而非返回 error
	Execute(ctx context.Context, rc *RequestContext) Outcome
}

// succeed 构造成功结果
func succeed(metadata map[string]any) Outcome {
	return Outcome{Success: true, Metadata: metadata}
}

// fail 构造失败结果
func fail(errMsg string) Outcome {
	return Outcome{Success: false, Error: errMsg}
}
