package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa-service/models"
)

// Memory is an in-process index using brute-force cosine similarity.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim     int
	chunks  []models.Chunk
	vectors [][]float32
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrDimensionMismatch, name, c.dim, dim)
		}
		return nil
	}
	m.collections[name] = &memCollection{dim: dim}
	return nil
}

func (m *Memory) Upsert(_ context.Context, name string, chunks []models.Chunk, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err := checkUpsert(chunks, vectors, c.dim); err != nil {
		return err
	}
	for i := range vectors {
		c.chunks = append(c.chunks, chunks[i])
		c.vectors = append(c.vectors, append([]float32(nil), vectors[i]...))
	}
	return nil
}

func (m *Memory) Query(_ context.Context, name string, vector []float32, topK int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if len(vector) != c.dim {
		return nil, fmt.Errorf("%w: query has %d values, collection has %d", ErrDimensionMismatch, len(vector), c.dim)
	}
	return rankByCosine(vector, c.chunks, c.vectors, topK), nil
}

func (m *Memory) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *Memory) ListCollections(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Len reports the number of collections, for tests and health output.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections)
}
