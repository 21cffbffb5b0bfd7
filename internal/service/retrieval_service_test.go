package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/model"
	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
)

type fakeChunkReader struct {
	chunks  []*model.ReadyChunk
	lastIDs []string
}

func (r *fakeChunkReader) ListReadyChunks(ctx context.Context, allowedDocIDs []string) ([]*model.ReadyChunk, error) {
	r.lastIDs = allowedDocIDs
	if len(allowedDocIDs) == 0 {
		return r.chunks, nil
	}
	allowed := make(map[string]struct{}, len(allowedDocIDs))
	for _, id := range allowedDocIDs {
		allowed[id] = struct{}{}
	}
	var out []*model.ReadyChunk
	for _, chunk := range r.chunks {
		if _, ok := allowed[chunk.DocumentID]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

type queryEmbedder struct {
	vector []float32
}

func (e *queryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector, nil
}

func (e *queryEmbedder) ModelName() string { return "fake-model" }
func (e *queryEmbedder) Dimensions() int   { return len(e.vector) }

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{DefaultTopK: 5, DefaultMinScore: 0.5, ContextBudget: 6000}
}

func readyChunk(docID string, ordinal int, embedding []float32) *model.ReadyChunk {
	return &model.ReadyChunk{
		DocumentID:   docID,
		DocumentName: docID + ".csv",
		Ordinal:      ordinal,
		Locator:      "Row 1",
		Content:      "content",
		Embedding:    embedding,
	}
}

func TestRetrieveRanksByCosineSimilarity(t *testing.T) {
	reader := &fakeChunkReader{chunks: []*model.ReadyChunk{
		readyChunk("doc-a", 0, []float32{1, 0, 0}),
		readyChunk("doc-b", 0, []float32{0, 1, 0}),
		readyChunk("doc-c", 0, []float32{0.9, 0.1, 0}),
	}}
	svc := NewRetrievalService(reader, &queryEmbedder{vector: []float32{1, 0, 0}}, testRetrievalConfig())

	results, err := svc.Retrieve(context.Background(), "query", 0, -1, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "doc-a", results[0].DocumentID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.Equal(t, "doc-c", results[1].DocumentID)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieveMinScoreFilters(t *testing.T) {
	reader := &fakeChunkReader{chunks: []*model.ReadyChunk{
		readyChunk("doc-a", 0, []float32{1, 0, 0}),
		readyChunk("doc-b", 0, []float32{0, 1, 0}),
	}}
	svc := NewRetrievalService(reader, &queryEmbedder{vector: []float32{1, 0, 0}}, testRetrievalConfig())

	results, err := svc.Retrieve(context.Background(), "query", 10, 0.99, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc-a", results[0].DocumentID)

	// explicit zero keeps everything with nonnegative similarity
	results, err = svc.Retrieve(context.Background(), "query", 10, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRetrieveTopKAndTieBreak(t *testing.T) {
	// identical embeddings make every score equal; order must fall back to
	// document id then ordinal
	reader := &fakeChunkReader{chunks: []*model.ReadyChunk{
		readyChunk("doc-b", 1, []float32{1, 0, 0}),
		readyChunk("doc-a", 2, []float32{1, 0, 0}),
		readyChunk("doc-b", 0, []float32{1, 0, 0}),
		readyChunk("doc-a", 0, []float32{1, 0, 0}),
	}}
	svc := NewRetrievalService(reader, &queryEmbedder{vector: []float32{1, 0, 0}}, testRetrievalConfig())

	results, err := svc.Retrieve(context.Background(), "query", 3, -1, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "doc-a", results[0].DocumentID)
	require.Equal(t, 0, results[0].Ordinal)
	require.Equal(t, "doc-a", results[1].DocumentID)
	require.Equal(t, 2, results[1].Ordinal)
	require.Equal(t, "doc-b", results[2].DocumentID)
	require.Equal(t, 0, results[2].Ordinal)
}

func TestRetrieveScopedToAllowedDocuments(t *testing.T) {
	reader := &fakeChunkReader{chunks: []*model.ReadyChunk{
		readyChunk("doc-a", 0, []float32{1, 0, 0}),
		readyChunk("doc-b", 0, []float32{1, 0, 0}),
	}}
	svc := NewRetrievalService(reader, &queryEmbedder{vector: []float32{1, 0, 0}}, testRetrievalConfig())

	results, err := svc.Retrieve(context.Background(), "query", 10, -1, []string{"doc-b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc-b", results[0].DocumentID)
	require.Equal(t, []string{"doc-b"}, reader.lastIDs)
}

func TestRetrieveEmptyQueryAndEmptyResult(t *testing.T) {
	reader := &fakeChunkReader{}
	svc := NewRetrievalService(reader, &queryEmbedder{vector: []float32{1, 0, 0}}, testRetrievalConfig())

	_, err := svc.Retrieve(context.Background(), "", 5, -1, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	results, err := svc.Retrieve(context.Background(), "query", 5, -1, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	require.Zero(t, cosineSimilarity(nil, nil))
	require.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	require.InDelta(t, 1.0, cosineSimilarity([]float32{0.5, 0.5}, []float32{2, 2}), 1e-6)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}
