package ai

import (
	"context"
	"errors"

	"docqa-service/models"
)

// DimensionProbe is embedded once per session to learn a model's vector width.
const DimensionProbe = "dimension-check"

var (
	ErrEmptyEmbedding  = errors.New("provider returned an empty embedding")
	ErrEmptyCompletion = errors.New("provider returned an empty completion")
	ErrCircuitOpen     = errors.New("provider circuit breaker is open")
	ErrQuotaExceeded   = errors.New("provider quota exceeded")
)

// Embedder maps text to a fixed-width vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator completes a fully assembled prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Reranker rescores retrieval candidates against the query and keeps the best topN.
// Implementations must not alter chunk text or metadata.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, candidates []models.ScoredChunk, topN int) ([]models.ScoredChunk, error)
}
