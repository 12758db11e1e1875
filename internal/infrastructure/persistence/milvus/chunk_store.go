package milvus

import (
	"context"
	"fmt"

	"knowledge-qa-api/internal/application/indexing"
)

// ChunkStoreAdapter 将向量仓储适配为索引侧的 ChunkStore
type ChunkStoreAdapter struct {
	repo *Repository
}

func NewChunkStoreAdapter(repo *Repository) *ChunkStoreAdapter {
	return &ChunkStoreAdapter{repo: repo}
}

var _ indexing.ChunkStore = (*ChunkStoreAdapter)(nil)

func (a *ChunkStoreAdapter) EnsureCollection(ctx context.Context) error {
	if a == nil || a.repo == nil {
		return fmt.Errorf("vector store not configured")
	}
	return a.repo.EnsureDocumentChunksCollection(ctx)
}

func (a *ChunkStoreAdapter) InsertChunks(ctx context.Context, collectionID string, chunks []*indexing.ChunkRecord) error {
	if a == nil || a.repo == nil {
		return fmt.Errorf("vector store not configured")
	}
	if len(chunks) == 0 {
		return nil
	}

	out := make([]*DocumentChunk, 0, len(chunks))
	for i := range chunks {
		c := chunks[i]
		if c == nil {
			continue
		}
		out = append(out, &DocumentChunk{
			ID:           c.ID,
			Vector:       c.Vector,
			CollectionID: collectionID,
			DocumentID:   c.DocumentID,
			ChunkIndex:   int64(c.ChunkIndex),
			TextContent:  c.Text,
		})
	}
	return a.repo.InsertChunks(ctx, collectionID, out)
}

func (a *ChunkStoreAdapter) DeleteByDocument(ctx context.Context, collectionID, documentID string) error {
	if a == nil || a.repo == nil {
		return fmt.Errorf("vector store not configured")
	}
	return a.repo.DeleteChunksByDocument(ctx, collectionID, documentID)
}
