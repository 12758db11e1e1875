package indexing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

type fakeDocRepo struct {
	docs map[string]*entity.Document

	statusUpdates []entity.DocumentStatus
	updated       *entity.Document
	getErr        error
}

func newFakeDocRepo(docs ...*entity.Document) *fakeDocRepo {
	r := &fakeDocRepo{docs: make(map[string]*entity.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) Create(_ context.Context, d *entity.Document) error {
	r.docs[d.ID] = d
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	return r.docs[id], r.getErr
}

func (r *fakeDocRepo) GetByIDForUpdate(_ context.Context, id string) (*entity.Document, error) {
	return r.docs[id], r.getErr
}

func (r *fakeDocRepo) Update(_ context.Context, d *entity.Document) error {
	r.updated = d
	r.docs[d.ID] = d
	return nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id string) error {
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo) ListByCollection(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	return nil, nil
}

func (r *fakeDocRepo) ListByStatus(_ context.Context, status entity.DocumentStatus, _ int) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range r.docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateStatus(_ context.Context, id string, status entity.DocumentStatus, errorDetail string) error {
	r.statusUpdates = append(r.statusUpdates, status)
	if d, ok := r.docs[id]; ok {
		d.Status = status
		d.ErrorDetail = errorDetail
	}
	return nil
}

type fakeCollectionRepo struct {
	documentDelta int
	chunkDelta    int
	counterCalls  int
}

func (r *fakeCollectionRepo) Create(context.Context, *entity.Collection) error { return nil }
func (r *fakeCollectionRepo) GetByID(context.Context, string) (*entity.Collection, error) {
	return nil, nil
}
func (r *fakeCollectionRepo) Update(context.Context, *entity.Collection) error { return nil }
func (r *fakeCollectionRepo) Delete(context.Context, string) error             { return nil }
func (r *fakeCollectionRepo) ListByUser(context.Context, string, repository.Pagination) (*repository.PagedResult[*entity.Collection], error) {
	return nil, nil
}

func (r *fakeCollectionRepo) UpdateCounters(_ context.Context, _ string, documentDelta, chunkDelta int) error {
	r.counterCalls++
	r.documentDelta += documentDelta
	r.chunkDelta += chunkDelta
	return nil
}

func newTestService(doc *entity.Document, embedder *fakeEmbedder, store *fakeChunkStore) (*Service, *fakeDocRepo, *fakeCollectionRepo) {
	docs := newFakeDocRepo(doc)
	collections := &fakeCollectionRepo{}
	indexer := NewIndexer(embedder, store, 32, 1)
	indexer.chunkSizeRunes = 16
	return NewService(docs, collections, indexer), docs, collections
}

func TestServiceIndexDocumentHappyPath(t *testing.T) {
	doc := testDocument("first part #0 and second part #1 tail")
	svc, docs, collections := newTestService(doc, &fakeEmbedder{}, &fakeChunkStore{})

	err := svc.IndexDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusIndexed, doc.Status)
	assert.NotNil(t, doc.IndexedAt)
	assert.Positive(t, doc.ChunkCount)
	// indexing 状态先落库，完成后整体更新
	require.NotEmpty(t, docs.statusUpdates)
	assert.Equal(t, entity.DocumentStatusIndexing, docs.statusUpdates[0])
	assert.Equal(t, doc.ChunkCount, collections.chunkDelta)
	assert.Zero(t, collections.documentDelta)
}

func TestServiceIndexDocumentReindexAdjustsCounterDelta(t *testing.T) {
	doc := testDocument("short content")
	doc.ChunkCount = 5
	doc.Status = entity.DocumentStatusIndexed
	svc, _, collections := newTestService(doc, &fakeEmbedder{}, &fakeChunkStore{})

	err := svc.IndexDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkCount)
	// 重建后 chunk 从 5 变 1，统计应回收 4
	assert.Equal(t, -4, collections.chunkDelta)
}

func TestServiceIndexDocumentMarksFailed(t *testing.T) {
	doc := testDocument("some content")
	embedder := &fakeEmbedder{err: errors.New("embedding backend down")}
	svc, _, collections := newTestService(doc, embedder, &fakeChunkStore{})

	err := svc.IndexDocument(context.Background(), "doc-1")

	require.Error(t, err)
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorDetail, "embedding backend down")
	assert.Zero(t, collections.counterCalls)
}

func TestServiceIndexDocumentNotFound(t *testing.T) {
	doc := testDocument("content")
	svc, _, _ := newTestService(doc, &fakeEmbedder{}, &fakeChunkStore{})

	err := svc.IndexDocument(context.Background(), "missing")
	require.Error(t, err)
}

func TestServiceIndexDocumentSkipsNonIndexable(t *testing.T) {
	doc := testDocument("content")
	doc.Status = entity.DocumentStatusIndexing
	svc, docs, _ := newTestService(doc, &fakeEmbedder{}, &fakeChunkStore{})

	err := svc.IndexDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Empty(t, docs.statusUpdates)
}

func TestServiceRemoveDocument(t *testing.T) {
	doc := testDocument("content")
	doc.ChunkCount = 7
	store := &fakeChunkStore{}
	svc, _, collections := newTestService(doc, &fakeEmbedder{}, store)

	err := svc.RemoveDocument(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, 1, store.deleteCalls)
	assert.Equal(t, -7, collections.chunkDelta)
}

func TestServiceResumePending(t *testing.T) {
	pending := testDocument("content")
	indexed := entity.NewDocument("col-1", "user-1", "done", "content")
	indexed.ID = "doc-2"
	indexed.Status = entity.DocumentStatusIndexed

	docs := newFakeDocRepo(pending, indexed)
	svc := NewService(docs, &fakeCollectionRepo{}, NewIndexer(&fakeEmbedder{}, &fakeChunkStore{}, 32, 1))

	var enqueued []string
	resumed, err := svc.ResumePending(context.Background(), 10, func(_ context.Context, id string) error {
		enqueued = append(enqueued, id)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resumed)
	assert.Equal(t, []string{"doc-1"}, enqueued)
}
