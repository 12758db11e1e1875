package indexing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"knowledge-qa-api/internal/domain/entity"
)

const (
	defaultChunkSizeRunes    = 800
	defaultChunkOverlapRunes = 80
	defaultEmbeddingBatch    = 32
	defaultEmbedParallelism  = 4
)

// Indexer 把文档正文切分、批量向量化并写入向量库
type Indexer struct {
	embedder embedding.Embedder
	chunks   ChunkStore

	embeddingBatchSize int
	embedParallelism   int
	chunkSizeRunes     int
	chunkOverlapRunes  int
}

// NewIndexer 创建索引器。batchSize 控制单次 Embedding 请求的文本数，
// parallelism 控制并发批次数，两者 <=0 时使用默认值
func NewIndexer(embedder embedding.Embedder, chunks ChunkStore, batchSize, parallelism int) *Indexer {
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatch
	}
	if parallelism <= 0 {
		parallelism = defaultEmbedParallelism
	}
	return &Indexer{
		embedder:           embedder,
		chunks:             chunks,
		embeddingBatchSize: batchSize,
		embedParallelism:   parallelism,
		chunkSizeRunes:     defaultChunkSizeRunes,
		chunkOverlapRunes:  defaultChunkOverlapRunes,
	}
}

// SetChunking 覆盖切分粒度，<=0 的值保持默认
func (i *Indexer) SetChunking(sizeRunes, overlapRunes int) {
	if sizeRunes > 0 {
		i.chunkSizeRunes = sizeRunes
	}
	if overlapRunes > 0 {
		i.chunkOverlapRunes = overlapRunes
	}
}

// Enabled 索引能力是否可用
func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.chunks != nil
}

// IndexDocument 重建单个文档的全部分片并返回写入的分片数。
// 旧分片总是先删除；空正文只执行删除，避免旧分片残留
func (i *Indexer) IndexDocument(ctx context.Context, doc *entity.Document) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("document is nil")
	}
	if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.CollectionID) == "" {
		return 0, fmt.Errorf("document id and collection id are required")
	}
	if !i.Enabled() {
		return 0, ErrIndexingDisabled
	}
	if err := i.chunks.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	if err := i.chunks.DeleteByDocument(ctx, doc.CollectionID, doc.ID); err != nil {
		return 0, err
	}

	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return 0, nil
	}

	texts := splitByRunes(content, i.chunkSizeRunes, i.chunkOverlapRunes)
	if len(texts) == 0 {
		return 0, nil
	}

	records := make([]*ChunkRecord, 0, len(texts))
	embedInputs := make([]string, 0, len(texts))
	for idx, text := range texts {
		embedText := text
		if t := strings.TrimSpace(doc.Title); t != "" {
			// 标题拼进向量文本，提高短查询的召回
			embedText = t + "\n" + text
		}
		embedInputs = append(embedInputs, embedText)
		records = append(records, &ChunkRecord{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Text:       text,
		})
	}

	vectors, err := i.embedParallel(ctx, embedInputs)
	if err != nil {
		return 0, err
	}
	for idx := range records {
		records[idx].Vector = vectors[idx]
	}

	if err := i.chunks.InsertChunks(ctx, doc.CollectionID, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// RemoveDocument 删除文档的全部分片
func (i *Indexer) RemoveDocument(ctx context.Context, collectionID, documentID string) error {
	if !i.Enabled() {
		return ErrIndexingDisabled
	}
	if strings.TrimSpace(collectionID) == "" || strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("collection id and document id are required")
	}
	return i.chunks.DeleteByDocument(ctx, collectionID, documentID)
}

// embedParallel 把文本按批提交到协程池并发向量化，结果按输入顺序归位
func (i *Indexer) embedParallel(ctx context.Context, texts []string) ([][]float32, error) {
	if i == nil || i.embedder == nil {
		return nil, ErrIndexingDisabled
	}
	if len(texts) == 0 {
		return nil, nil
	}

	type batch struct {
		start, end int
	}
	batches := make([]batch, 0, len(texts)/i.embeddingBatchSize+1)
	for start := 0; start < len(texts); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start: start, end: end})
	}

	out := make([][]float32, len(texts))
	if len(batches) == 1 || i.embedParallelism <= 1 {
		for _, b := range batches {
			if err := i.embedInto(ctx, texts, b.start, b.end, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	pool, err := ants.NewPool(i.embedParallelism)
	if err != nil {
		return nil, fmt.Errorf("create embedding worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errCh := make(chan error, len(batches))
	for _, b := range batches {
		b := b
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := i.embedInto(ctx, texts, b.start, b.end, out); err != nil {
				errCh <- err
			}
		}); submitErr != nil {
			wg.Done()
			errCh <- fmt.Errorf("submit embedding batch: %w", submitErr)
		}
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

// embedInto 向量化 texts[start:end] 并写入 out 的对应区间
func (i *Indexer) embedInto(ctx context.Context, texts []string, start, end int, out [][]float32) error {
	v64, err := i.embedder.EmbedStrings(ctx, texts[start:end])
	if err != nil {
		return err
	}
	if len(v64) != end-start {
		return fmt.Errorf("embedding returned %d vectors for %d texts", len(v64), end-start)
	}
	for idx, vec := range v64 {
		f32 := make([]float32, 0, len(vec))
		for _, x := range vec {
			f32 = append(f32, float32(x))
		}
		out[start+idx] = f32
	}
	return nil
}
