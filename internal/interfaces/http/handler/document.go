// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/infrastructure/messaging"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/internal/interfaces/http/middleware"
	"knowledge-qa-api/pkg/logger"
)

// DocumentHandler 文档处理器，写路径负责投递异步索引任务
type DocumentHandler struct {
	documents   repository.DocumentRepository
	collections repository.CollectionRepository
	producer    *messaging.Producer
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(
	documents repository.DocumentRepository,
	collections repository.CollectionRepository,
	producer *messaging.Producer,
) *DocumentHandler {
	return &DocumentHandler{
		documents:   documents,
		collections: collections,
		producer:    producer,
	}
}

// loadOwnedCollection 加载集合并校验归属与状态
func (h *DocumentHandler) loadOwnedCollection(c *gin.Context) *entity.Collection {
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

// loadOwnedDocument 加载文档并校验归属
func (h *DocumentHandler) loadOwnedDocument(c *gin.Context) *entity.Document {
	ctx := c.Request.Context()
	documentID := dto.BindDocumentID(c)

	doc, err := h.documents.GetByID(ctx, documentID)
	if err != nil {
		logger.Error(ctx, "failed to get document", err)
		dto.InternalError(c, "failed to get document")
		return nil
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return nil
	}
	if doc.UserID != middleware.GetUserIDFromGin(c) {
		dto.Forbidden(c, "document belongs to another user")
		return nil
	}
	return doc
}

// CreateDocument 上传文档并投递索引任务
// @Summary 上传文档
// @Description 创建 pending 状态的文档并发布索引消息，切分与向量化由 worker 异步完成
// @Tags Documents
// @Accept json
// @Produce json
// @Param cid path string true "集合 ID"
// @Param body body dto.CreateDocumentRequest true "文档内容"
// @Success 202 {object} dto.Response[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/collections/{cid}/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	col := h.loadOwnedCollection(c)
	if col == nil {
		return
	}
	if !col.IsActive() {
		dto.BadRequest(c, "collection is archived")
		return
	}

	doc := entity.NewDocument(col.ID, col.UserID, req.Title, req.Content)
	doc.ContentType = req.ContentType
	doc.Tags = pq.StringArray(req.Tags)

	if err := h.documents.Create(ctx, doc); err != nil {
		logger.Error(ctx, "failed to create document", err)
		dto.InternalError(c, "failed to create document")
		return
	}
	if err := h.collections.UpdateCounters(ctx, col.ID, 1, 0); err != nil {
		logger.Warn(ctx, "update collection counters", "collection_id", col.ID, "error", err)
	}

	// 投递失败不回滚文档，pending 状态的文档由 worker 启动时兜底重投
	h.publishIndexJob(ctx, doc, false)

	dto.Accepted(c, dto.ToDocumentResponse(doc, false))
}

// GetDocument 获取文档详情（含正文）
// @Summary 获取文档详情
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Success 200 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc := h.loadOwnedDocument(c)
	if doc == nil {
		return
	}
	dto.Success(c, dto.ToDocumentResponse(doc, true))
}

// ListDocuments 获取集合下的文档列表
// @Summary 获取文档列表
// @Tags Documents
// @Produce json
// @Param cid path string true "集合 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.DocumentResponse]
// @Router /api/v1/collections/{cid}/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	col := h.loadOwnedCollection(c)
	if col == nil {
		return
	}

	result, err := h.documents.ListByCollection(ctx, col.ID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list documents", err)
		dto.InternalError(c, "failed to list documents")
		return
	}

	resp := dto.ToDocumentResponses(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// UpdateDocument 更新文档，正文变更后重新投递索引任务
// @Summary 更新文档
// @Tags Documents
// @Accept json
// @Produce json
// @Param did path string true "文档 ID"
// @Param body body dto.UpdateDocumentRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc := h.loadOwnedDocument(c)
	if doc == nil {
		return
	}

	contentChanged := false
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Tags != nil {
		doc.Tags = pq.StringArray(*req.Tags)
	}
	if req.Content != nil && *req.Content != doc.Content {
		doc.Content = *req.Content
		doc.CharCount = len([]rune(doc.Content))
		doc.Status = entity.DocumentStatusPending
		doc.ErrorDetail = ""
		doc.IndexedAt = nil
		contentChanged = true
	}
	doc.UpdatedAt = time.Now()

	if err := h.documents.Update(ctx, doc); err != nil {
		logger.Error(ctx, "failed to update document", err)
		dto.InternalError(c, "failed to update document")
		return
	}

	if contentChanged {
		h.publishIndexJob(ctx, doc, true)
	}

	dto.Success(c, dto.ToDocumentResponse(doc, false))
}

// DeleteDocument 删除文档并投递分片清理任务
// @Summary 删除文档
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Success 200 {object} dto.Response[any]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()

	doc := h.loadOwnedDocument(c)
	if doc == nil {
		return
	}

	if err := h.documents.Delete(ctx, doc.ID); err != nil {
		logger.Error(ctx, "failed to delete document", err)
		dto.InternalError(c, "failed to delete document")
		return
	}
	if err := h.collections.UpdateCounters(ctx, doc.CollectionID, -1, 0); err != nil {
		logger.Warn(ctx, "update collection counters", "collection_id", doc.CollectionID, "error", err)
	}

	// 向量分片由 worker 异步清理，chunk 统计在清理完成后回收
	if h.producer != nil {
		if _, err := h.producer.PublishDocumentDelete(ctx, &messaging.DocumentDeleteMessage{
			DocumentID:   doc.ID,
			CollectionID: doc.CollectionID,
			UserID:       doc.UserID,
			ChunkCount:   doc.ChunkCount,
		}); err != nil {
			logger.Warn(ctx, "publish document delete", "document_id", doc.ID, "error", err)
		}
	}

	dto.Success(c, gin.H{"message": "document deleted"})
}

// ReindexDocument 重新索引文档
// @Summary 重新索引文档
// @Description 将文档重置为 pending 并重新投递索引任务
// @Tags Documents
// @Produce json
// @Param did path string true "文档 ID"
// @Success 202 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did}/reindex [post]
func (h *DocumentHandler) ReindexDocument(c *gin.Context) {
	ctx := c.Request.Context()

	doc := h.loadOwnedDocument(c)
	if doc == nil {
		return
	}
	if doc.Content == "" {
		dto.UnprocessableEntity(c, "document has no content to index", nil)
		return
	}
	if doc.Status == entity.DocumentStatusIndexing {
		dto.Conflict(c, "document is being indexed")
		return
	}

	if err := h.documents.UpdateStatus(ctx, doc.ID, entity.DocumentStatusPending, ""); err != nil {
		logger.Error(ctx, "failed to reset document status", err)
		dto.InternalError(c, "failed to reindex document")
		return
	}
	doc.Status = entity.DocumentStatusPending
	doc.ErrorDetail = ""

	h.publishIndexJob(ctx, doc, true)

	dto.Accepted(c, dto.ToDocumentResponse(doc, false))
}

// publishIndexJob 投递索引消息，失败只记日志
func (h *DocumentHandler) publishIndexJob(ctx context.Context, doc *entity.Document, reindex bool) {
	if h.producer == nil {
		return
	}
	if _, err := h.producer.PublishDocumentIndex(ctx, &messaging.DocumentIndexMessage{
		DocumentID:   doc.ID,
		CollectionID: doc.CollectionID,
		UserID:       doc.UserID,
		Reindex:      reindex,
	}); err != nil {
		logger.Warn(ctx, "publish document index", "document_id", doc.ID, "error", err)
	}
}
