// Package handler 提供 HTTP 请求处理器
package handler

import (
	"knowledge-qa-api/internal/application/query"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// QueryHandler 问答处理器
type QueryHandler struct {
	queries *query.Service
}

// NewQueryHandler 创建问答处理器
func NewQueryHandler(queries *query.Service) *QueryHandler {
	return &QueryHandler{
		queries: queries,
	}
}

// Ask 同步问答
// @Summary 检索增强问答
// @Description 执行完整的查询管道（解析、增强、检索、重排）并生成回答
// @Tags Query
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问答请求"
// @Success 200 {object} dto.Response[dto.QueryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/query [post]
func (h *QueryHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.queries.Ask(ctx, req.ToAskRequest(userID))
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, dto.ToQueryResponse(result))
}
