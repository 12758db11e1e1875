// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultSearchEf = 64

// Repository 向量仓储
type Repository struct {
	client *Client
	dim    int
}

// NewRepository 创建向量仓储，dim 为向量维度
func NewRepository(client *Client, dim int) *Repository {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &Repository{client: client, dim: dim}
}

// SearchParams 检索参数
type SearchParams struct {
	CollectionID string
	QueryVector  []float32
	TopK         int
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	DocumentID  string
	ChunkIndex  int64
	TextContent string
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 为知识集合创建分区
func (r *Repository) CreatePartition(ctx context.Context, collectionID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(attribute.String("partition", PartitionName(collectionID))))
	defer span.End()

	collName := r.client.CollectionName(CollectionDocumentChunks)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(collectionID))
}

// DropPartition 删除知识集合对应的分区，集合删除时调用
func (r *Repository) DropPartition(ctx context.Context, collectionID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DropPartition",
		trace.WithAttributes(attribute.String("partition", PartitionName(collectionID))))
	defer span.End()

	collName := r.client.CollectionName(CollectionDocumentChunks)
	partitionName := PartitionName(collectionID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	if err := r.client.milvus.ReleasePartitions(ctx, collName, []string{partitionName}); err != nil {
		span.RecordError(err)
	}
	if err := r.client.milvus.DropPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to drop partition: %w", err)
	}
	return nil
}

// SearchChunks 在知识集合分区内按向量相似度检索 chunk
func (r *Repository) SearchChunks(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchChunks",
		trace.WithAttributes(
			attribute.String("collection_id", params.CollectionID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionDocumentChunks)
	partitionName := PartitionName(params.CollectionID)

	// 分区尚未创建（集合还没有索引过文档）时直接返回空结果
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	filter := fmt.Sprintf(`collection_id == "%s"`, params.CollectionID)

	ef := r.client.config.SearchEf
	if ef <= 0 {
		ef = defaultSearchEf
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id", "document_id", "chunk_index", "text_content"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if docCol, ok := result.Fields.GetColumn("document_id").(*entity.ColumnVarChar); ok {
				sr.DocumentID = docCol.Data()[i]
			}
			if idxCol, ok := result.Fields.GetColumn("chunk_index").(*entity.ColumnInt64); ok {
				sr.ChunkIndex = idxCol.Data()[i]
			}
			if textCol, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				sr.TextContent = textCol.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertChunks 插入文档 chunk
func (r *Repository) InsertChunks(ctx context.Context, collectionID string, chunks []*DocumentChunk) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertChunks",
		trace.WithAttributes(
			attribute.String("collection_id", collectionID),
			attribute.Int("count", len(chunks)),
		))
	defer span.End()

	if len(chunks) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionDocumentChunks)
	partitionName := PartitionName(collectionID)

	// 确保分区存在
	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, collectionID); err != nil {
			return err
		}
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	collectionIDs := make([]string, len(chunks))
	documentIDs := make([]string, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	textContents := make([]string, len(chunks))

	for i, chunk := range chunks {
		ids[i] = chunk.ID
		vectors[i] = chunk.Vector
		collectionIDs[i] = chunk.CollectionID
		documentIDs[i] = chunk.DocumentID
		chunkIndexes[i] = chunk.ChunkIndex
		textContents[i] = chunk.TextContent
	}

	idCol := entity.NewColumnVarChar("id", ids)
	vectorCol := entity.NewColumnFloatVector("vector", r.dim, vectors)
	collectionCol := entity.NewColumnVarChar("collection_id", collectionIDs)
	documentCol := entity.NewColumnVarChar("document_id", documentIDs)
	indexCol := entity.NewColumnInt64("chunk_index", chunkIndexes)
	textCol := entity.NewColumnVarChar("text_content", textContents)

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		idCol, vectorCol, collectionCol, documentCol, indexCol, textCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return nil
}

// DeleteChunksByDocument 删除文档的所有 chunk，重建索引前调用
func (r *Repository) DeleteChunksByDocument(ctx context.Context, collectionID, documentID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteChunksByDocument",
		trace.WithAttributes(attribute.String("document_id", documentID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionDocumentChunks)
	partitionName := PartitionName(collectionID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`document_id == "%s"`, documentID)

	err := r.client.milvus.Delete(ctx, collName, partitionName, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// RebuildIndex 重建索引
func (r *Repository) RebuildIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.RebuildIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	// 1. 释放集合
	if err := r.client.milvus.ReleaseCollection(ctx, collName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release collection: %w", err)
	}

	// 2. 删除旧索引
	if err := r.client.milvus.DropIndex(ctx, collName, "vector"); err != nil {
		// 忽略索引不存在的错误
	}

	// 3. 创建新索引
	if err := r.CreateIndex(ctx, collection); err != nil {
		return err
	}

	// 4. 重新加载集合
	return r.client.milvus.LoadCollection(ctx, collName, false)
}

// EnsureDocumentChunksCollection 确保 document_chunks 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作
func (r *Repository) EnsureDocumentChunksCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionDocumentChunks)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, DocumentChunksSchema(r.dim)); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入
		_ = r.CreateIndex(ctx, CollectionDocumentChunks)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionDocumentChunks)
}
