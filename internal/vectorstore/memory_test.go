package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"docqa-service/models"
)

func chunk(doc, pos int, text string) models.Chunk {
	return models.Chunk{Text: text, DocumentIndex: doc, Position: pos, SourceName: "doc.pdf"}
}

func TestMemoryQueryOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.EnsureCollection(ctx, "session_a", 2); err != nil {
		t.Fatal(err)
	}
	err := m.Upsert(ctx, "session_a",
		[]models.Chunk{chunk(0, 0, "x axis"), chunk(0, 1, "y axis"), chunk(0, 2, "diagonal")},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.Query(ctx, "session_a", []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Text != "x axis" || got[1].Text != "diagonal" {
		t.Errorf("order = %q, %q", got[0].Text, got[1].Text)
	}
	if math.Abs(got[0].Score-1) > 1e-9 {
		t.Errorf("top score = %v", got[0].Score)
	}
}

func TestMemoryEnsureCollectionDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.EnsureCollection(ctx, "s", 3); err != nil {
		t.Fatal(err)
	}
	if err := m.EnsureCollection(ctx, "s", 3); err != nil {
		t.Errorf("same dimension should be a no-op: %v", err)
	}
	if err := m.EnsureCollection(ctx, "s", 4); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestMemoryUpsertValidation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.EnsureCollection(ctx, "s", 2)

	err := m.Upsert(ctx, "s", []models.Chunk{chunk(0, 0, "a")}, nil)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
	err = m.Upsert(ctx, "s", []models.Chunk{chunk(0, 0, "a")}, [][]float32{{1, 2, 3}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	err = m.Upsert(ctx, "missing", []models.Chunk{chunk(0, 0, "a")}, [][]float32{{1, 2}})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("err = %v, want ErrCollectionNotFound", err)
	}
}

func TestMemoryCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.EnsureCollection(ctx, "session_a", 2)
	_ = m.EnsureCollection(ctx, "session_b", 2)
	_ = m.Upsert(ctx, "session_a", []models.Chunk{chunk(0, 0, "alpha")}, [][]float32{{1, 0}})
	_ = m.Upsert(ctx, "session_b", []models.Chunk{chunk(0, 0, "beta")}, [][]float32{{1, 0}})

	got, _ := m.Query(ctx, "session_b", []float32{1, 0}, 10)
	if len(got) != 1 || got[0].Text != "beta" {
		t.Errorf("session_b saw %+v", got)
	}
}

func TestMemoryDeleteCollection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.EnsureCollection(ctx, "s", 2)
	_ = m.EnsureCollection(ctx, "r", 2)
	if names, _ := m.ListCollections(ctx); len(names) != 2 || names[0] != "r" {
		t.Errorf("ListCollections = %v", names)
	}
	if err := m.DeleteCollection(ctx, "r"); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteCollection(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
	if _, err := m.Query(ctx, "s", []float32{1, 0}, 1); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestCosine(t *testing.T) {
	if c := Cosine([]float32{1, 0}, []float32{0, 1}); c != 0 {
		t.Errorf("orthogonal = %v", c)
	}
	if c := Cosine([]float32{0, 0}, []float32{1, 1}); c != 0 {
		t.Errorf("zero vector = %v", c)
	}
	if c := Cosine([]float32{2, 2}, []float32{1, 1}); math.Abs(c-1) > 1e-9 {
		t.Errorf("parallel = %v", c)
	}
}
