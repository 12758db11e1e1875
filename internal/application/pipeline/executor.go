package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledge-qa-api/pkg/logger"
	"knowledge-qa-api/pkg/metrics"
)

var tracer = otel.Tracer("pipeline")

// Executor 按固定顺序驱动阶段执行。单个阶段失败只记录错误并继续，
// 部分结果保留给调用方判断是否可用。执行器自身不做 I/O
type Executor struct {
	stages []Stage
}

// NewExecutor 创建执行器
func NewExecutor(stages ...Stage) *Executor {
	return &Executor{stages: stages}
}

// Stages 返回当前阶段名称列表
func (e *Executor) Stages() []string {
	names := make([]string, 0, len(e.stages))
	for _, st := range e.stages {
		names = append(names, st.Name())
	}
	return names
}

// AddStage 追加阶段。只应在两次执行之间调用
func (e *Executor) AddStage(stage Stage) {
	e.stages = append(e.stages, stage)
}

// RemoveStage 按名称移除阶段，返回是否发生了移除。只应在两次执行之间调用
func (e *Executor) RemoveStage(name string) bool {
	for i, st := range e.stages {
		if st.Name() == name {
			e.stages = append(e.stages[:i:i], e.stages[i+1:]...)
			return true
		}
	}
	return false
}

// Execute 依次执行所有阶段并返回同一个上下文。
// 成功的阶段将其元数据并入 Metadata[阶段名]；失败的阶段追加
// "{阶段名} failed: {错误}" 到 Errors 后继续执行下一阶段，
// 永远不会因为阶段失败提前中止。全部阶段结束后写入 ExecutionTime
func (e *Executor) Execute(ctx context.Context, rc *RequestContext) *RequestContext {
	ctx, span := tracer.Start(ctx, "pipeline.Execute")
	defer span.End()

	stages := e.stages
	span.SetAttributes(attribute.Int("pipeline.stage_count", len(stages)))

	start := time.Now()
	for _, stage := range stages {
		e.runStage(ctx, stage, rc)
	}
	rc.ExecutionTime = time.Since(start)

	metrics.PipelineRunDuration.Observe(rc.ExecutionTime.Seconds())
	metrics.PipelineRunsTotal.WithLabelValues(RunStatus(rc)).Inc()
	logger.Debug(ctx, "pipeline run finished",
		"stages", len(stages),
		"errors", len(rc.Errors),
		"duration_ms", rc.ExecutionTime.Milliseconds(),
	)

	return rc
}

// runStage 执行单个阶段并合并其结果
func (e *Executor) runStage(ctx context.Context, stage Stage, rc *RequestContext) {
	name := stage.Name()
	ctx, span := tracer.Start(ctx, "pipeline.stage."+name)
	defer span.End()

	start := time.Now()
	outcome := stage.Execute(ctx, rc)
	elapsed := time.Since(start)

	metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if !outcome.Success {
		metrics.PipelineStageFailures.WithLabelValues(name).Inc()
		span.SetAttributes(attribute.String("stage.error", outcome.Error))
		rc.AddError(name, outcome.Error)
		logger.Warn(ctx, "pipeline stage failed",
			"stage", name,
			"reason", outcome.Error,
			"duration_ms", elapsed.Milliseconds(),
		)
		return
	}

	rc.SetStageMetadata(name, outcome.Metadata)
	logger.Debug(ctx, "pipeline stage finished",
		"stage", name,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// 执行状态：ok 全部成功；partial 有失败但管道已解析，部分结果可用；
// failed 管道解析都没有完成，结果不可用
const (
	RunStatusOK      = "ok"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// RunStatus 根据累计错误归类一次执行的状态，供指标与响应映射使用
func RunStatus(rc *RequestContext) string {
	switch {
	case len(rc.Errors) == 0:
		return RunStatusOK
	case rc.PipelineID == "":
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}
