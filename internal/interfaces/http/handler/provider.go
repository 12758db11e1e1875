// Package handler 提供 HTTP 请求处理器
package handler

import (
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/infrastructure/llm"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProviderHandler LLM 提供方处理器，路由层限制为管理员访问
type ProviderHandler struct {
	providers repository.LLMProviderRepository
	factory   *llm.EinoFactory
}

// NewProviderHandler 创建提供方处理器
func NewProviderHandler(providers repository.LLMProviderRepository, factory *llm.EinoFactory) *ProviderHandler {
	return &ProviderHandler{
		providers: providers,
		factory:   factory,
	}
}

// load 按路径参数加载提供方
func (h *ProviderHandler) load(c *gin.Context) *entity.LLMProvider {
	ctx := c.Request.Context()
	providerID := dto.BindID(c)

	provider, err := h.providers.GetByID(ctx, providerID)
	if err != nil {
		logger.Error(ctx, "failed to get provider", err)
		dto.InternalError(c, "failed to get provider")
		return nil
	}
	if provider == nil {
		dto.NotFound(c, "provider not found")
		return nil
	}
	return provider
}

// CreateProvider 创建 LLM 提供方
// @Summary 创建 LLM 提供方
// @Description 注册一个 LLM 提供方，名称全局唯一
// @Tags Providers
// @Accept json
// @Produce json
// @Param body body dto.CreateProviderRequest true "提供方配置"
// @Success 201 {object} dto.Response[dto.ProviderResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/providers [post]
func (h *ProviderHandler) CreateProvider(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	existing, err := h.providers.GetByName(ctx, req.Name)
	if err != nil {
		logger.Error(ctx, "failed to check provider name", err)
		dto.InternalError(c, "failed to check provider name")
		return
	}
	if existing != nil {
		dto.Conflict(c, "provider name already exists")
		return
	}

	provider := req.ToLLMProvider()
	if err := h.providers.Create(ctx, provider); err != nil {
		logger.Error(ctx, "failed to create provider", err)
		dto.InternalError(c, "failed to create provider")
		return
	}

	dto.Created(c, dto.ToProviderResponse(provider))
}

// GetProvider 获取提供方详情
// @Summary 获取 LLM 提供方详情
// @Tags Providers
// @Produce json
// @Param id path string true "提供方 ID"
// @Success 200 {object} dto.Response[dto.ProviderResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/providers/{id} [get]
func (h *ProviderHandler) GetProvider(c *gin.Context) {
	provider := h.load(c)
	if provider == nil {
		return
	}
	dto.Success(c, dto.ToProviderResponse(provider))
}

// ListProviders 列出提供方
// @Summary 分页列出 LLM 提供方
// @Tags Providers
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.ProviderResponse]
// @Router /api/v1/providers [get]
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	result, err := h.providers.List(ctx, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list providers", err)
		dto.InternalError(c, "failed to list providers")
		return
	}

	dto.SuccessWithPage(c, dto.ToProviderResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// UpdateProvider 更新提供方
// @Summary 更新 LLM 提供方
// @Description 名称不可修改，其余字段按需更新；变更后失效工厂中缓存的客户端实例
// @Tags Providers
// @Accept json
// @Produce json
// @Param id path string true "提供方 ID"
// @Param body body dto.UpdateProviderRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProviderResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/providers/{id} [put]
func (h *ProviderHandler) UpdateProvider(c *gin.Context) {
	ctx := c.Request.Context()

	provider := h.load(c)
	if provider == nil {
		return
	}

	var req dto.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req.ApplyToProvider(provider)
	if err := h.providers.Update(ctx, provider); err != nil {
		logger.Error(ctx, "failed to update provider", err)
		dto.InternalError(c, "failed to update provider")
		return
	}

	// 工厂按名称缓存客户端，配置变更后必须清掉旧实例
	h.factory.Invalidate(provider.Name)

	dto.Success(c, dto.ToProviderResponse(provider))
}

// DeleteProvider 删除提供方
// @Summary 删除 LLM 提供方
// @Description 默认提供方不可直接删除，需先将默认切换到其他提供方
// @Tags Providers
// @Produce json
// @Param id path string true "提供方 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/providers/{id} [delete]
func (h *ProviderHandler) DeleteProvider(c *gin.Context) {
	ctx := c.Request.Context()

	provider := h.load(c)
	if provider == nil {
		return
	}
	// 默认提供方是管道自动创建的依赖，留着兜底
	if provider.IsDefault {
		dto.UnprocessableEntity(c, "cannot delete the default provider")
		return
	}

	if err := h.providers.Delete(ctx, provider.ID); err != nil {
		logger.Error(ctx, "failed to delete provider", err)
		dto.InternalError(c, "failed to delete provider")
		return
	}

	h.factory.Invalidate(provider.Name)

	dto.NoContent(c)
}
