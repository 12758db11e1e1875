// Package handler 提供 HTTP 请求处理器
package handler

import (
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/infrastructure/persistence/redis"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PipelineHandler 管道配置处理器
type PipelineHandler struct {
	pipelines repository.PipelineConfigRepository
	providers repository.LLMProviderRepository
	cache     *redis.Cache
}

// NewPipelineHandler 创建管道配置处理器
func NewPipelineHandler(
	pipelines repository.PipelineConfigRepository,
	providers repository.LLMProviderRepository,
	cache *redis.Cache,
) *PipelineHandler {
	return &PipelineHandler{
		pipelines: pipelines,
		providers: providers,
		cache:     cache,
	}
}

// loadOwned 加载管道配置并校验归属
func (h *PipelineHandler) loadOwned(c *gin.Context) *entity.PipelineConfig {
	ctx := c.Request.Context()
	pipelineID := dto.BindPipelineID(c)

	cfg, err := h.pipelines.GetByID(ctx, pipelineID)
	if err != nil {
		logger.Error(ctx, "failed to get pipeline config", err)
		dto.InternalError(c, "failed to get pipeline config")
		return nil
	}
	if cfg == nil {
		dto.NotFound(c, "pipeline config not found")
		return nil
	}
	if cfg.UserID != middleware.GetUserIDFromGin(c) {
		dto.Forbidden(c, "pipeline config belongs to another user")
		return nil
	}
	return cfg
}

// checkProvider 校验提供方存在且可用
func (h *PipelineHandler) checkProvider(c *gin.Context, providerID string) bool {
	ctx := c.Request.Context()

	provider, err := h.providers.GetByID(ctx, providerID)
	if err != nil {
		logger.Error(ctx, "failed to get provider", err)
		dto.InternalError(c, "failed to get provider")
		return false
	}
	if provider == nil {
		dto.UnprocessableEntity(c, "provider not found")
		return false
	}
	if !provider.Usable() {
		dto.UnprocessableEntity(c, "provider is disabled")
		return false
	}
	return true
}

// CreatePipeline 创建管道配置
// @Summary 创建管道配置
// @Description 创建问答管道配置，绑定 LLM 提供方与可选的集合
// @Tags Pipelines
// @Accept json
// @Produce json
// @Param body body dto.CreatePipelineRequest true "管道配置"
// @Success 201 {object} dto.Response[dto.PipelineResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/pipelines [post]
func (h *PipelineHandler) CreatePipeline(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreatePipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.checkProvider(c, req.ProviderID) {
		return
	}

	cfg := req.ToPipelineConfig(userID)
	if err := h.pipelines.Create(ctx, cfg); err != nil {
		logger.Error(ctx, "failed to create pipeline config", err)
		dto.InternalError(c, "failed to create pipeline config")
		return
	}

	// 新的默认管道生效前清掉旧的默认指针缓存
	if cfg.IsDefault {
		if err := h.cache.InvalidatePipeline(ctx, userID, cfg.ID); err != nil {
			logger.Warn(ctx, "invalidate pipeline cache failed", "pipeline_id", cfg.ID, "error", err)
		}
	}

	dto.Created(c, dto.ToPipelineResponse(cfg))
}

// GetPipeline 获取管道配置
// @Summary 获取管道配置详情
// @Tags Pipelines
// @Produce json
// @Param pid path string true "管道 ID"
// @Success 200 {object} dto.Response[dto.PipelineResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/pipelines/{pid} [get]
func (h *PipelineHandler) GetPipeline(c *gin.Context) {
	cfg := h.loadOwned(c)
	if cfg == nil {
		return
	}
	dto.Success(c, dto.ToPipelineResponse(cfg))
}

// ListPipelines 列出管道配置
// @Summary 分页列出当前用户的管道配置
// @Tags Pipelines
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.PipelineResponse]
// @Router /api/v1/pipelines [get]
func (h *PipelineHandler) ListPipelines(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	page := dto.BindPage(c)

	result, err := h.pipelines.ListByUser(ctx, userID, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list pipeline configs", err)
		dto.InternalError(c, "failed to list pipeline configs")
		return
	}

	dto.SuccessWithPage(c, dto.ToPipelineResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// UpdatePipeline 更新管道配置
// @Summary 更新管道配置
// @Tags Pipelines
// @Accept json
// @Produce json
// @Param pid path string true "管道 ID"
// @Param body body dto.UpdatePipelineRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.PipelineResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/pipelines/{pid} [put]
func (h *PipelineHandler) UpdatePipeline(c *gin.Context) {
	ctx := c.Request.Context()

	cfg := h.loadOwned(c)
	if cfg == nil {
		return
	}

	var req dto.UpdatePipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.ProviderID != nil && !h.checkProvider(c, *req.ProviderID) {
		return
	}

	req.ApplyToPipelineConfig(cfg)
	if err := h.pipelines.Update(ctx, cfg); err != nil {
		logger.Error(ctx, "failed to update pipeline config", err)
		dto.InternalError(c, "failed to update pipeline config")
		return
	}

	// 问答链路走读穿透缓存，改完必须主动失效
	if err := h.cache.InvalidatePipeline(ctx, cfg.UserID, cfg.ID); err != nil {
		logger.Warn(ctx, "invalidate pipeline cache failed", "pipeline_id", cfg.ID, "error", err)
	}

	dto.Success(c, dto.ToPipelineResponse(cfg))
}

// DeletePipeline 删除管道配置
// @Summary 删除管道配置
// @Tags Pipelines
// @Produce json
// @Param pid path string true "管道 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/pipelines/{pid} [delete]
func (h *PipelineHandler) DeletePipeline(c *gin.Context) {
	ctx := c.Request.Context()

	cfg := h.loadOwned(c)
	if cfg == nil {
		return
	}

	if err := h.pipelines.Delete(ctx, cfg.ID); err != nil {
		logger.Error(ctx, "failed to delete pipeline config", err)
		dto.InternalError(c, "failed to delete pipeline config")
		return
	}

	if err := h.cache.InvalidatePipeline(ctx, cfg.UserID, cfg.ID); err != nil {
		logger.Warn(ctx, "invalidate pipeline cache failed", "pipeline_id", cfg.ID, "error", err)
	}

	dto.NoContent(c)
}
