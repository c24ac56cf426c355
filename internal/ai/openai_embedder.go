package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OpenAIEmbedder talks to any OpenAI-compatible /embeddings endpoint
// (OpenAI, Ollama's /v1, text-embeddings-inference).
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

type OpenAIEmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

func (o *OpenAIEmbedder) Name() string { return "openai:" + o.model }

type embeddingRequest struct {
	Input  string `json:"input"`
	Prompt string `json:"prompt,omitempty"` // Ollama-native field
	Model  string `json:"model"`
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Prompt: text, Model: o.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, lastDelay(lastErr, attempt)); err != nil {
				return nil, err
			}
		}

		vec, retry, err := o.do(ctx, body)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", o.maxRetries+1, lastErr)
}

// retryAfterError carries the server's requested backoff.
type retryAfterError struct {
	status string
	wait   time.Duration
}

func (e *retryAfterError) Error() string { return "embeddings endpoint returned " + e.status }

func (o *OpenAIEmbedder) do(ctx context.Context, body []byte) ([]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return nil, true, &retryAfterError{status: resp.Status, wait: wait}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("embeddings API error (status %d): %s", resp.StatusCode, truncate(string(payload), 200))
	}

	vec, err := decodeEmbedding(payload)
	if err != nil {
		return nil, false, err
	}
	return vec, false, nil
}

// decodeEmbedding accepts the OpenAI shape and falls back to Ollama's native {"embedding": [...]}.
func decodeEmbedding(payload []byte) ([]float32, error) {
	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
		return openaiOut.Data[0].Embedding, nil
	}
	if len(openaiOut.Embedding) > 0 {
		return openaiOut.Embedding, nil
	}
	return nil, ErrEmptyEmbedding
}

func lastDelay(err error, attempt int) time.Duration {
	var ra *retryAfterError
	if errors.As(err, &ra) && ra.wait > 0 {
		return ra.wait
	}
	return retryDelay(attempt)
}

// retryDelay is exponential from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
