// Package vectorstore holds the per-session vector collections. Each session
// owns exactly one collection; collections never share points.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"docqa-service/models"
)

var (
	ErrDimensionMismatch  = errors.New("vector dimension does not match collection")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrLengthMismatch     = errors.New("chunks and vectors length mismatch")
)

// Index is the vector index capability used by the session manager.
type Index interface {
	// Backend names the implementation for logs and metrics.
	Backend() string
	// EnsureCollection creates name with the given dimension. It is a no-op when the
	// collection exists with the same dimension and fails with ErrDimensionMismatch otherwise.
	EnsureCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error
	// Query returns up to topK chunks by descending cosine similarity.
	Query(ctx context.Context, name string, vector []float32, topK int) ([]models.ScoredChunk, error)
	DeleteCollection(ctx context.Context, name string) error
	// ListCollections returns collection names in lexical order.
	ListCollections(ctx context.Context) ([]string, error)
}

func checkDimension(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	return nil
}

func checkUpsert(chunks []models.Chunk, vectors [][]float32, dim int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, collection has %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rankByCosine scores every candidate against query and keeps the best topK.
func rankByCosine(query []float32, chunks []models.Chunk, vectors [][]float32, topK int) []models.ScoredChunk {
	scored := make([]models.ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = models.ScoredChunk{Chunk: chunks[i], Score: Cosine(query, vectors[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
