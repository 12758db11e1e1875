package indexing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
)

// fakeEmbedder 把文本末尾的数字编码进向量首位，便于校验并发归位
type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float64{textSeq(text), 1.0})
	}
	return out, nil
}

// textSeq 提取文本中最后一个 "#N" 标记的序号，没有则返回 -1
func textSeq(text string) float64 {
	idx := strings.LastIndex(text, "#")
	if idx < 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(text[idx+1:]))
	if err != nil {
		return -1
	}
	return float64(n)
}

type fakeChunkStore struct {
	ensureCalls int
	deleteCalls int
	insertCalls int

	deletedCollection string
	deletedDocument   string
	inserted          []*ChunkRecord

	ensureErr error
	deleteErr error
	insertErr error
}

func (s *fakeChunkStore) EnsureCollection(context.Context) error {
	s.ensureCalls++
	return s.ensureErr
}

func (s *fakeChunkStore) InsertChunks(_ context.Context, _ string, chunks []*ChunkRecord) error {
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, chunks...)
	return nil
}

func (s *fakeChunkStore) DeleteByDocument(_ context.Context, collectionID, documentID string) error {
	s.deleteCalls++
	s.deletedCollection = collectionID
	s.deletedDocument = documentID
	return s.deleteErr
}

func testDocument(content string) *entity.Document {
	doc := entity.NewDocument("col-1", "user-1", "Watson overview", content)
	doc.ID = "doc-1"
	return doc
}

func TestIndexDocumentSplitsEmbedsAndStores(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	indexer := NewIndexer(embedder, store, 32, 1)
	indexer.chunkSizeRunes = 12
	indexer.chunkOverlapRunes = 0

	doc := testDocument("aaaaaaaaaa#0 bbbbbbbbb#1 ccccccccc#2")
	count, err := indexer.IndexDocument(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, store.ensureCalls)
	assert.Equal(t, 1, store.deleteCalls)
	assert.Equal(t, "doc-1", store.deletedDocument)

	require.Len(t, store.inserted, 3)
	for i, chunk := range store.inserted {
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.NotEmpty(t, chunk.ID)
		require.Len(t, chunk.Vector, 2)
		// 向量与分片一一对应
		assert.Equal(t, float32(i), chunk.Vector[0])
	}
}

func TestIndexDocumentEmptyContentOnlyDeletes(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	indexer := NewIndexer(embedder, store, 32, 1)

	doc := testDocument("   ")
	count, err := indexer.IndexDocument(context.Background(), doc)

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, store.deleteCalls)
	assert.Zero(t, store.insertCalls)
	assert.Zero(t, embedder.calls)
}

func TestIndexDocumentRequiresIDs(t *testing.T) {
	indexer := NewIndexer(&fakeEmbedder{}, &fakeChunkStore{}, 32, 1)

	doc := entity.NewDocument("", "user-1", "t", "content")
	_, err := indexer.IndexDocument(context.Background(), doc)
	require.Error(t, err)

	_, err = indexer.IndexDocument(context.Background(), nil)
	require.Error(t, err)
}

func TestIndexDocumentDisabledWithoutEmbedder(t *testing.T) {
	indexer := NewIndexer(nil, &fakeChunkStore{}, 32, 1)

	_, err := indexer.IndexDocument(context.Background(), testDocument("content"))
	require.ErrorIs(t, err, ErrIndexingDisabled)
}

func TestIndexDocumentEmbedderErrorSkipsInsert(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	store := &fakeChunkStore{}
	indexer := NewIndexer(embedder, store, 32, 1)

	_, err := indexer.IndexDocument(context.Background(), testDocument("some content"))

	require.Error(t, err)
	assert.Zero(t, store.insertCalls)
}

func TestEmbedParallelPreservesOrder(t *testing.T) {
	embedder := &fakeEmbedder{}
	indexer := NewIndexer(embedder, &fakeChunkStore{}, 7, 4)

	texts := make([]string, 100)
	for i := range texts {
		texts[i] = fmt.Sprintf("text #%d", i)
	}

	vectors, err := indexer.embedParallel(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, 100)
	for i, vec := range vectors {
		require.Len(t, vec, 2)
		assert.Equal(t, float32(i), vec[0], "vector %d out of order", i)
	}
	// 100 条文本、批大小 7 => 15 个批次
	assert.Equal(t, 15, embedder.calls)
}

func TestEmbedParallelPropagatesError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("backend down")}
	indexer := NewIndexer(embedder, &fakeChunkStore{}, 4, 3)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text #%d", i)
	}

	_, err := indexer.embedParallel(context.Background(), texts)
	require.Error(t, err)
}

func TestRemoveDocument(t *testing.T) {
	store := &fakeChunkStore{}
	indexer := NewIndexer(&fakeEmbedder{}, store, 32, 1)

	err := indexer.RemoveDocument(context.Background(), "col-9", "doc-9")

	require.NoError(t, err)
	assert.Equal(t, "col-9", store.deletedCollection)
	assert.Equal(t, "doc-9", store.deletedDocument)
}
