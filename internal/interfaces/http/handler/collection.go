// Package handler 提供 HTTP 请求处理器
package handler

import (
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/infrastructure/persistence/milvus"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CollectionHandler 集合处理器
type CollectionHandler struct {
	collections repository.CollectionRepository
	documents   repository.DocumentRepository
	vectors     *milvus.Repository
}

// NewCollectionHandler 创建集合处理器
func NewCollectionHandler(
	collections repository.CollectionRepository,
	documents repository.DocumentRepository,
	vectors *milvus.Repository,
) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		documents:   documents,
		vectors:     vectors,
	}
}

// loadOwned 加载集合并校验归属
func (h *CollectionHandler) loadOwned(c *gin.Context) *entity.Collection {
	ctx := c.Request.Context()
	collectionID := dto.BindCollectionID(c)

	col, err := h.collections.GetByID(ctx, collectionID)
	if err != nil {
		logger.Error(ctx, "failed to get collection", err)
		dto.InternalError(c, "failed to get collection")
		return nil
	}
	if col == nil {
		dto.NotFound(c, "collection not found")
		return nil
	}
	if col.UserID != middleware.GetUserIDFromGin(c) {
		dto.Forbidden(c, "collection belongs to another user")
		return nil
	}
	return col
}

// CreateCollection 创建集合
// @Summary 创建集合
// @Description 创建一个新的文档集合，并在向量库中建立对应分区
// @Tags Collections
// @Accept json
// @Produce json
// @Param body body dto.CreateCollectionRequest true "集合信息"
// @Success 201 {object} dto.Response[dto.CollectionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/collections [post]
func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	col := entity.NewCollection(userID, req.Name, req.Description)
	if err := h.collections.Create(ctx, col); err != nil {
		logger.Error(ctx, "failed to create collection", err)
		dto.InternalError(c, "failed to create collection")
		return
	}

	// 分区可以延迟到首次写入时创建，这里提前建好以降低首次索引延迟
	if h.vectors != nil {
		if err := h.vectors.CreatePartition(ctx, col.ID); err != nil {
			logger.Warn(ctx, "create vector partition", "collection_id", col.ID, "error", err)
		}
	}

	dto.Created(c, dto.ToCollectionResponse(col))
}

// GetCollection 获取集合详情
// @Summary 获取集合详情
// @Tags Collections
// @Produce json
// @Param cid path string true "集合 ID"
// @Success 200 {object} dto.Response[dto.CollectionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/collections/{cid} [get]
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	col := h.loadOwned(c)
	if col == nil {
		return
	}
	dto.Success(c, dto.ToCollectionResponse(col))
}

// ListCollections 获取当前用户的集合列表
// @Summary 获取集合列表
// @Tags Collections
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.CollectionResponse]
// @Router /api/v1/collections [get]
func (h *CollectionHandler) ListCollections(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	pageReq := dto.BindPage(c)

	result, err := h.collections.ListByUser(ctx, userID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list collections", err)
		dto.InternalError(c, "failed to list collections")
		return
	}

	resp := dto.ToCollectionResponses(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// UpdateCollection 更新集合
// @Summary 更新集合
// @Tags Collections
// @Accept json
// @Produce json
// @Param cid path string true "集合 ID"
// @Param body body dto.UpdateCollectionRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.CollectionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/collections/{cid} [put]
func (h *CollectionHandler) UpdateCollection(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	col := h.loadOwned(c)
	if col == nil {
		return
	}

	req.ApplyToCollection(col)
	if err := h.collections.Update(ctx, col); err != nil {
		logger.Error(ctx, "failed to update collection", err)
		dto.InternalError(c, "failed to update collection")
		return
	}

	dto.Success(c, dto.ToCollectionResponse(col))
}

// DeleteCollection 删除集合及其全部文档与向量分区
// @Summary 删除集合
// @Tags Collections
// @Produce json
// @Param cid path string true "集合 ID"
// @Success 200 {object} dto.Response[any]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/collections/{cid} [delete]
func (h *CollectionHandler) DeleteCollection(c *gin.Context) {
	ctx := c.Request.Context()

	col := h.loadOwned(c)
	if col == nil {
		return
	}

	if err := h.documents.DeleteByCollection(ctx, col.ID); err != nil {
		logger.Error(ctx, "failed to delete collection documents", err)
		dto.InternalError(c, "failed to delete collection")
		return
	}
	if err := h.collections.Delete(ctx, col.ID); err != nil {
		logger.Error(ctx, "failed to delete collection", err)
		dto.InternalError(c, "failed to delete collection")
		return
	}

	// 分区整体删除，单个文档的分片无需再逐一清理
	if h.vectors != nil {
		if err := h.vectors.DropPartition(ctx, col.ID); err != nil {
			logger.Warn(ctx, "drop vector partition", "collection_id", col.ID, "error", err)
		}
	}

	dto.Success(c, gin.H{"message": "collection deleted"})
}
