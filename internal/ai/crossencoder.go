package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docqa-service/internal/logger"
	"docqa-service/models"

	"github.com/sony/gobreaker"
)

// CrossEncoderReranker calls a text-embeddings-inference style /rerank endpoint
// serving a cross-encoder such as ms-marco-MiniLM-L-12-v2.
type CrossEncoderReranker struct {
	url     string
	model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type CrossEncoderConfig struct {
	URL           string
	Model         string
	Timeout       time.Duration
	OnStateChange func(service, state string)
}

func NewCrossEncoderReranker(cfg CrossEncoderConfig) *CrossEncoderReranker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Reranker",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange("reranker", to.String())
			}
		},
	})
	return &CrossEncoderReranker{
		url:     strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

func (r *CrossEncoderReranker) Name() string { return "cross-encoder:" + r.model }

type rerankRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	Truncate bool     `json:"truncate"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []models.ScoredChunk, topN int) ([]models.ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.score(ctx, query, texts)
	})
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredChunk, 0, len(candidates))
	seen := make(map[int]struct{}, len(candidates))
	for _, res := range result.([]rerankResult) {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("reranker returned out-of-range index %d", res.Index)
		}
		// first score wins for a repeated index
		if _, dup := seen[res.Index]; dup {
			continue
		}
		seen[res.Index] = struct{}{}
		c := candidates[res.Index]
		c.Score = res.Score
		scored = append(scored, c)
	}
	return TopN(scored, topN), nil
}

func (r *CrossEncoderReranker) score(ctx context.Context, query string, texts []string) ([]rerankResult, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API error (status %d): %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var results []rerankResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return results, nil
}
