// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"io"
	"strings"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// StreamQuery 流式问答
// 先推送一条 metadata 事件携带检索结果，随后以 content 事件逐段推送回答，
// 最后以 done 事件收尾；管道失败在建立流之前以普通错误响应返回
// @Summary 流式检索增强问答
// @Description 通过 SSE 流式返回回答，事件依次为 metadata、content*、done
// @Tags Query
// @Accept json
// @Produce text/event-stream
// @Param body body dto.AskRequest true "问答请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/query/stream [post]
func (h *QueryHandler) StreamQuery(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	reader, rc, err := h.queries.AskStream(ctx, req.ToAskRequest(userID))
	if err != nil {
		writeError(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 回答开始前先推送检索元数据，客户端可立即渲染引用来源
	c.SSEvent("metadata", gin.H{
		"session_id":      rc.SessionID,
		"pipeline_id":     rc.PipelineID,
		"rewritten_query": rc.RewrittenQuery,
		"chunks":          dto.ToChunkDTOs(rc.QueryResults),
		"status":          pipeline.RunStatus(rc),
		"errors":          rc.Errors,
	})
	c.Writer.Flush()

	contentCh := make(chan string, 16)
	doneCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(doneCh)
		defer close(errCh)
		defer reader.Close()

		var answer strings.Builder
		for {
			msg, recvErr := reader.Recv()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if recvErr != nil {
				errCh <- recvErr
				return
			}
			if msg.Content != "" {
				answer.WriteString(msg.Content)
				contentCh <- msg.Content
			}
		}

		// 流结束后持久化助手轮次，再通知前端收尾
		final := strings.TrimSpace(answer.String())
		h.queries.RecordAssistantTurn(ctx, rc, final)
		doneCh <- final
	}()

	index := 0
	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-contentCh:
			if !ok {
				// content 关闭时收尾事件已写入缓冲，冲刷后再结束
				h.flushFinal(c, rc, doneCh, errCh)
				return false
			}
			c.SSEvent("content", gin.H{"chunk": chunk, "index": index})
			index++
			return true

		case answer, ok := <-doneCh:
			if !ok {
				return false
			}
			c.SSEvent("done", gin.H{
				"answer":     answer,
				"session_id": rc.SessionID,
			})
			return false

		case streamErr, ok := <-errCh:
			if ok && streamErr != nil {
				c.SSEvent("error", gin.H{"message": streamErr.Error()})
			}
			return false

		case <-ctx.Done():
			return false
		}
	})
}

// flushFinal 在 content 通道关闭后补发收尾事件
// 生产者总是先写入 doneCh 或 errCh 再关闭通道，这里非阻塞读取即可
func (h *QueryHandler) flushFinal(c *gin.Context, rc *pipeline.RequestContext, doneCh <-chan string, errCh <-chan error) {
	select {
	case answer, ok := <-doneCh:
		if ok {
			c.SSEvent("done", gin.H{
				"answer":     answer,
				"session_id": rc.SessionID,
			})
		}
	case streamErr, ok := <-errCh:
		if ok && streamErr != nil {
			c.SSEvent("error", gin.H{"message": streamErr.Error()})
		}
	default:
	}
}
