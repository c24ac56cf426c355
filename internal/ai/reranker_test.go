package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docqa-service/models"
)

func candidates(texts ...string) []models.ScoredChunk {
	out := make([]models.ScoredChunk, len(texts))
	for i, t := range texts {
		out[i] = models.ScoredChunk{
			Chunk: models.Chunk{Text: t, SourceName: "doc.pdf", Position: i},
			Score: 0.5,
		}
	}
	return out
}

func TestLexicalRerankerOrdersByOverlap(t *testing.T) {
	in := candidates(
		"The weather in Paris is mild.",
		"Springfield is the capital of Illinois.",
		"Illinois borders Indiana.",
	)
	out, err := NewLexicalReranker().Rerank(context.Background(), "What is the capital of Illinois?", in, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Text != "Springfield is the capital of Illinois." {
		t.Errorf("top = %q", out[0].Text)
	}
	if out[0].Position != 1 || out[0].SourceName != "doc.pdf" {
		t.Errorf("metadata changed: %+v", out[0].Chunk)
	}
}

func TestLexicalRerankerNeverExceedsInput(t *testing.T) {
	in := candidates("a b c", "d e f")
	out, _ := NewLexicalReranker().Rerank(context.Background(), "q", in, 12)
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
	out, _ = NewLexicalReranker().Rerank(context.Background(), "q", nil, 12)
	if len(out) != 0 {
		t.Errorf("empty input gave %d results", len(out))
	}
}

func TestCrossEncoderReranker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if len(req.Texts) != 3 {
			t.Errorf("texts = %d", len(req.Texts))
		}
		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.4},
			{Index: 1, Score: 0.1},
		})
	}))
	defer srv.Close()

	r := NewCrossEncoderReranker(CrossEncoderConfig{URL: srv.URL, Model: "ms-marco"})
	out, err := r.Rerank(context.Background(), "q", candidates("zero", "one", "two"), 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(out) != 2 || out[0].Text != "two" || out[1].Text != "zero" {
		t.Errorf("order = %+v", out)
	}
	if out[0].Score != 0.9 {
		t.Errorf("score = %v", out[0].Score)
	}
}

func TestCrossEncoderRerankerBadIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"index":7,"score":1}]`))
	}))
	defer srv.Close()

	r := NewCrossEncoderReranker(CrossEncoderConfig{URL: srv.URL, Model: "m"})
	if _, err := r.Rerank(context.Background(), "q", candidates("only"), 1); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestCrossEncoderRerankerIgnoresDuplicateIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"index":0,"score":0.9},{"index":0,"score":0.8},{"index":1,"score":0.1}]`))
	}))
	defer srv.Close()

	r := NewCrossEncoderReranker(CrossEncoderConfig{URL: srv.URL, Model: "m"})
	got, err := r.Rerank(context.Background(), "q", candidates("first", "second"), 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks from 2 candidates", len(got))
	}
	if got[0].Text != "first" || got[0].Score != 0.9 || got[1].Text != "second" {
		t.Errorf("unexpected order %+v", got)
	}
}
