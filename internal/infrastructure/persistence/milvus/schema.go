// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionDocumentChunks 文档 chunk 集合
	CollectionDocumentChunks = "document_chunks"

	// DefaultVectorDimension 默认向量维度
	DefaultVectorDimension = 1536
)

// DocumentChunksSchema 文档 chunk Collection Schema
func DocumentChunksSchema(dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &entity.Schema{
		CollectionName: CollectionDocumentChunks,
		Description:    "Document chunks for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
			{
				Name:     "collection_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// DocumentChunk 文档 chunk 数据结构
type DocumentChunk struct {
	ID           string    `json:"id"`
	Vector       []float32 `json:"vector"`
	CollectionID string    `json:"collection_id"`
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int64     `json:"chunk_index"`
	TextContent  string    `json:"text_content"`
}

// PartitionName 生成集合对应的分区名称。
// Milvus 分区名只允许字母数字与下划线，UUID 中的连字符需要替换
func PartitionName(collectionID string) string {
	return "col_" + strings.ReplaceAll(collectionID, "-", "_")
}
