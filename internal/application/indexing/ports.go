package indexing

import "context"

// ChunkRecord 待写入向量库的文档分片
type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Vector     []float32
}

// ChunkStore 索引侧对向量存储的最小依赖，由 Milvus 实现
type ChunkStore interface {
	EnsureCollection(ctx context.Context) error
	InsertChunks(ctx context.Context, collectionID string, chunks []*ChunkRecord) error
	DeleteByDocument(ctx context.Context, collectionID, documentID string) error
}
