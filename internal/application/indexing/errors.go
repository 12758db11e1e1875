package indexing

import "errors"

var (
	// ErrIndexingDisabled 表示向量索引能力未配置（Milvus 或 Embedder 不可用）
	ErrIndexingDisabled = errors.New("document indexing is disabled")
)
