package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubEmbedder struct {
	name string
	dim  int
	err  error
}

func (s *stubEmbedder) Name() string { return s.name }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dim), nil
}

func TestEmbedderChainPrefersPrimary(t *testing.T) {
	chain, err := NewEmbedderChain(EmbedderConfig{
		Primary:  &stubEmbedder{name: "large", dim: 1024},
		Fallback: &stubEmbedder{name: "base", dim: 768},
	})
	if err != nil {
		t.Fatal(err)
	}
	e, dim, err := chain.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if e.Name() != "large" || dim != 1024 {
		t.Errorf("got %s/%d, want large/1024", e.Name(), dim)
	}
}

func TestEmbedderChainFallsBackWithFreshDimension(t *testing.T) {
	chain, _ := NewEmbedderChain(EmbedderConfig{
		Primary:  &stubEmbedder{name: "large", err: errors.New("model not pulled")},
		Fallback: &stubEmbedder{name: "base", dim: 768},
	})
	e, dim, err := chain.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if e.Name() != "base" || dim != 768 {
		t.Errorf("got %s/%d, want base/768", e.Name(), dim)
	}
	if got, err := chain.ByName("base"); err != nil || got != e {
		t.Errorf("ByName(base) = %v, %v", got, err)
	}
}

func TestEmbedderChainBothFail(t *testing.T) {
	chain, _ := NewEmbedderChain(EmbedderConfig{
		Primary:  &stubEmbedder{name: "large", err: errors.New("down")},
		Fallback: &stubEmbedder{name: "base", err: errors.New("also down")},
	})
	if _, _, err := chain.Select(context.Background()); err == nil {
		t.Fatal("expected error when both embedders fail")
	}
}

func TestProbeDimensionRejectsEmpty(t *testing.T) {
	_, err := ProbeDimension(context.Background(), &stubEmbedder{name: "zero", dim: 0})
	if !errors.Is(err, ErrEmptyEmbedding) {
		t.Fatalf("err = %v, want ErrEmptyEmbedding", err)
	}
}

func TestByNameUnknown(t *testing.T) {
	chain, _ := NewEmbedderChain(EmbedderConfig{Primary: &stubEmbedder{name: "only", dim: 4}})
	if _, err := chain.ByName("other"); err == nil {
		t.Fatal("expected error for unknown embedder")
	}
	if names := chain.Names(); len(names) != 1 || names[0] != "only" {
		t.Errorf("Names() = %v", names)
	}
}

func TestByNameConcurrentLookups(t *testing.T) {
	chain, _ := NewEmbedderChain(EmbedderConfig{
		Primary:  &stubEmbedder{name: "primary", dim: 4},
		Fallback: &stubEmbedder{name: "fallback", dim: 2},
	})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range []string{"primary", "fallback"} {
				if e, err := chain.ByName(name); err != nil || e.Name() != name {
					t.Errorf("ByName(%q) = %v, %v", name, e, err)
				}
			}
		}()
	}
	wg.Wait()
}
