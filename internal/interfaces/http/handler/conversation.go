// Package handler 提供 HTTP 请求处理器
package handler

import (
	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 会话处理器
type ConversationHandler struct {
	conversations *conversation.Service
	collections   repository.CollectionRepository
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(conversations *conversation.Service, collections repository.CollectionRepository) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		collections:   collections,
	}
}

// CreateSession 创建会话
// @Summary 创建问答会话
// @Description 在指定集合下创建一个多轮问答会话
// @Tags Conversations
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "会话信息"
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/conversations [post]
func (h *ConversationHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 校验集合存在且归属当前用户
	col, err := h.collections.GetByID(ctx, req.CollectionID)
	if err != nil {
		logger.Error(ctx, "failed to get collection", err)
		dto.InternalError(c, "failed to create session")
		return
	}
	if col == nil {
		dto.NotFound(c, "collection not found")
		return
	}
	if col.UserID != userID {
		dto.Forbidden(c, "collection belongs to another user")
		return
	}

	session, err := h.conversations.StartSession(ctx, userID, req.CollectionID, req.Title)
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Created(c, dto.ToSessionResponse(session))
}

// ListSessions 获取会话列表
// @Summary 获取会话列表
// @Tags Conversations
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.SessionListResponse]
// @Router /api/v1/conversations [get]
func (h *ConversationHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	pageReq := dto.BindPage(c)

	result, err := h.conversations.ListSessions(ctx, userID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.ToSessionListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetSession 获取会话详情
// @Summary 获取会话详情
// @Tags Conversations
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/conversations/{sid} [get]
func (h *ConversationHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	session, err := h.conversations.GetSession(ctx, userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, dto.ToSessionResponse(session))
}

// DeleteSession 删除会话
// @Summary 删除会话
// @Tags Conversations
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[any]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/conversations/{sid} [delete]
func (h *ConversationHandler) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	if err := h.conversations.DeleteSession(ctx, userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, gin.H{"message": "session deleted"})
}

// ListTurns 获取会话轮次列表
// @Summary 获取会话轮次
// @Description 分页获取会话的问答轮次，按时间正序
// @Tags Conversations
// @Produce json
// @Param sid path string true "会话 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.TurnListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/conversations/{sid}/turns [get]
func (h *ConversationHandler) ListTurns(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)
	pageReq := dto.BindPage(c)

	result, err := h.conversations.ListTurns(ctx, userID, sessionID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.ToTurnListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}
