// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/pkg/logger"
)

type rollbackOnlyError struct {
	status int
}

func (e rollbackOnlyError) Error() string {
	return fmt.Sprintf("rollback only: status=%d", e.status)
}

// DBTransaction 为每个 HTTP 请求自动管理数据库事务。
//
//  1. 请求级事务：整个请求的处理过程包裹在一个数据库事务中。
//  2. 自动提交/回滚：
//     - 成功：HTTP 状态码 < 400 且无内部错误 -> 提交事务。
//     - 失败：HTTP 状态码 >= 400 或存在 Gin 错误 -> 回滚事务。
func DBTransaction(tx repository.Transactor) gin.HandlerFunc {
	if tx == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// 长连接/流式接口豁免：问答与 SSE 请求会等待 LLM 生成，
		// 持续时间长，不应全程占用事务连接，否则会耗尽连接池。
		// 此类请求由 Handler 内部按需创建短事务。
		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/stream") || strings.HasSuffix(path, "/query") {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			// 将包含事务的 Context 注入 Gin，供后续 Handler 使用
			c.Request = c.Request.WithContext(txCtx)

			c.Next()

			// 决定提交还是回滚：
			// 业务逻辑返回错误状态码 (>=400) 或 Gin 记录了错误时回滚
			status := c.Writer.Status()
			if status >= http.StatusBadRequest {
				return rollbackOnlyError{status: status}
			}
			if len(c.Errors) > 0 {
				return rollbackOnlyError{status: status}
			}
			return nil
		})

		if err == nil {
			return
		}

		// rollbackOnlyError 表示业务逻辑主动要求回滚（例如验证失败），
		// 响应已经由 Handler 写入，不需要额外处理
		var rbErr rollbackOnlyError
		if errors.As(err, &rbErr) {
			return
		}

		// 数据库层面的系统错误（如提交失败、死锁），记录日志并返回 500
		logger.Error(ctx, "db transaction failed", err)
		if !c.Writer.Written() && c.Writer.Status() < http.StatusBadRequest {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  "internal server error",
				"trace_id": c.GetString("trace_id"),
			})
		}
	}
}
