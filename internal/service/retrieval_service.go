package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/aqstack/ragstore/internal/ai"
	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/model"
	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

// ChunkReader supplies the candidate set for a query: chunks of READY,
// semantic-mode documents only.
type ChunkReader interface {
	ListReadyChunks(ctx context.Context, allowedDocIDs []string) ([]*model.ReadyChunk, error)
}

type RetrievalService struct {
	chunks   ChunkReader
	embedder ai.IEmbedder
	cfg      config.RetrievalConfig
}

func NewRetrievalService(chunks ChunkReader, embedder ai.IEmbedder, cfg config.RetrievalConfig) *RetrievalService {
	return &RetrievalService{chunks: chunks, embedder: embedder, cfg: cfg}
}

// Retrieve embeds the query and ranks candidate chunks by cosine similarity.
// k <= 0 and minScore < 0 fall back to the configured defaults. An empty
// result is a valid answer, not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int, minScore float32, allowedDocIDs []string) ([]*model.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", apperr.ErrInvalid)
	}
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}
	if minScore < 0 {
		minScore = s.cfg.DefaultMinScore
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates, err := s.chunks.ListReadyChunks(ctx, allowedDocIDs)
	if err != nil {
		return nil, err
	}
	results := make([]*model.SearchResult, 0, len(candidates))
	for _, chunk := range candidates {
		score := cosineSimilarity(queryVec, chunk.Embedding)
		if score < minScore {
			continue
		}
		results = append(results, &model.SearchResult{
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.DocumentName,
			Ordinal:      chunk.Ordinal,
			Locator:      chunk.Locator,
			Content:      chunk.Content,
			Score:        score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].Ordinal < results[j].Ordinal
	})
	if len(results) > k {
		results = results[:k]
	}
	logutil.GetLogger(ctx).Debug("retrieval done",
		zap.Int("candidates", len(candidates)), zap.Int("results", len(results)))
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
