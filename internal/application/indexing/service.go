// Package indexing 实现文档索引流程：切分、向量化、写入向量库并维护文档状态
package indexing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/pkg/errors"
	"knowledge-qa-api/pkg/logger"
	"knowledge-qa-api/pkg/metrics"
)

var tracer = otel.Tracer("indexing")

// Service 负责文档索引的状态机：pending -> indexing -> indexed/failed。
// 实际切分与向量化委托给 Indexer
type Service struct {
	docs        repository.DocumentRepository
	collections repository.CollectionRepository
	indexer     *Indexer
}

func NewService(docs repository.DocumentRepository, collections repository.CollectionRepository, indexer *Indexer) *Service {
	return &Service{
		docs:        docs,
		collections: collections,
		indexer:     indexer,
	}
}

// IndexDocument 按 ID 重建单个文档的索引。
// 文档不可索引（空正文或已在索引中）时直接返回，不视作错误
func (s *Service) IndexDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "indexing.IndexDocument")
	defer span.End()

	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return errors.New(errors.CodeInvalidParam, "document id is required")
	}

	doc, err := s.docs.GetByIDForUpdate(ctx, documentID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "获取文档失败")
	}
	if doc == nil {
		return errors.ErrDocumentNotFound
	}
	if !doc.Indexable() {
		logger.Info(ctx, "document not indexable, skip",
			"document_id", doc.ID,
			"status", string(doc.Status),
		)
		return nil
	}

	previousChunks := doc.ChunkCount
	doc.MarkIndexing()
	if err := s.docs.UpdateStatus(ctx, doc.ID, doc.Status, ""); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新文档状态失败")
	}

	start := time.Now()
	chunkCount, indexErr := s.indexer.IndexDocument(ctx, doc)
	if indexErr != nil {
		doc.MarkFailed(indexErr.Error())
		if updateErr := s.docs.UpdateStatus(ctx, doc.ID, doc.Status, doc.ErrorDetail); updateErr != nil {
			logger.Error(ctx, "mark document failed", updateErr, "document_id", doc.ID)
		}
		metrics.DocumentsIndexed.WithLabelValues("failed").Inc()
		logger.Error(ctx, "index document failed", indexErr,
			"document_id", doc.ID,
			"collection_id", doc.CollectionID,
		)
		return errors.Wrap(indexErr, errors.CodeIndexingFailed, "文档索引失败")
	}

	doc.MarkIndexed(chunkCount)
	if err := s.docs.Update(ctx, doc); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新文档失败")
	}
	if err := s.collections.UpdateCounters(ctx, doc.CollectionID, 0, chunkCount-previousChunks); err != nil {
		// 统计偏差不致命，记日志即可
		logger.Warn(ctx, "update collection counters", "collection_id", doc.CollectionID, "error", err)
	}

	metrics.DocumentsIndexed.WithLabelValues("success").Inc()
	metrics.IndexedChunks.Observe(float64(chunkCount))
	logger.Info(ctx, "document indexed",
		"document_id", doc.ID,
		"collection_id", doc.CollectionID,
		"chunks", chunkCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// RemoveDocument 删除文档的向量分片并回收集合统计。
// 文档行本身的删除由调用方在仓储层完成
func (s *Service) RemoveDocument(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "indexing.RemoveDocument")
	defer span.End()

	if doc == nil {
		return errors.New(errors.CodeInvalidParam, "document is required")
	}
	if err := s.indexer.RemoveDocument(ctx, doc.CollectionID, doc.ID); err != nil {
		return errors.Wrap(err, errors.CodeIndexingFailed, "删除文档分片失败")
	}
	if doc.ChunkCount > 0 {
		if err := s.collections.UpdateCounters(ctx, doc.CollectionID, 0, -doc.ChunkCount); err != nil {
			logger.Warn(ctx, "update collection counters", "collection_id", doc.CollectionID, "error", err)
		}
	}
	return nil
}

// ResumePending 重新投递 pending 状态的文档，服务重启后恢复索引
func (s *Service) ResumePending(ctx context.Context, limit int, enqueue func(ctx context.Context, documentID string) error) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	docs, err := s.docs.ListByStatus(ctx, entity.DocumentStatusPending, limit)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "列出待索引文档失败")
	}

	resumed := 0
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if err := enqueue(ctx, doc.ID); err != nil {
			logger.Warn(ctx, "re-enqueue pending document", "document_id", doc.ID, "error", err)
			continue
		}
		resumed++
	}
	if resumed > 0 {
		logger.Info(ctx, "resumed pending documents", "count", resumed)
	}
	return resumed, nil
}
