package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"docqa-service/models"

	"github.com/google/uuid"
)

// memmapThreshold keeps large collections on disk-backed segments.
const memmapThreshold = 20000

// Qdrant is a minimal REST client to Qdrant using cosine distance.
type Qdrant struct {
	url       string
	apiKey    string
	batchSize int
	client    *http.Client
}

type QdrantConfig struct {
	URL       string
	APIKey    string
	BatchSize int
	Timeout   time.Duration
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	return &Qdrant{
		url:       strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (q *Qdrant) Backend() string { return "qdrant" }

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (q *Qdrant) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := checkDimension(dim); err != nil {
		return err
	}

	var info qdrantCollectionInfo
	status, err := q.do(ctx, http.MethodGet, "/collections/"+name, nil, &info)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusOK {
		if got := info.Result.Config.Params.Vectors.Size; got != dim {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrDimensionMismatch, name, got, dim)
		}
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
		"optimizers_config": map[string]any{
			"memmap_threshold": memmapThreshold,
		},
	}
	_, err = q.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
	return err
}

func (q *Qdrant) Upsert(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error {
	if len(vectors) == 0 {
		return checkUpsert(chunks, vectors, 0)
	}
	if err := checkUpsert(chunks, vectors, len(vectors[0])); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += q.batchSize {
		end := start + q.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":      pointID(name, chunks[i]),
				"vector":  vectors[i],
				"payload": chunks[i],
			})
		}
		status, err := q.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", map[string]any{"points": points}, nil)
		if err != nil {
			if status == http.StatusNotFound {
				return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
			}
			if status == http.StatusBadRequest && strings.Contains(err.Error(), "dimension") {
				return fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
			}
			return err
		}
	}
	return nil
}

func (q *Qdrant) Query(ctx context.Context, name string, vector []float32, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", req, &resp)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, err
	}

	results := make([]models.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		var chunk models.Chunk
		if err := json.Unmarshal(r.Payload, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
		results = append(results, models.ScoredChunk{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (q *Qdrant) DeleteCollection(ctx context.Context, name string) error {
	status, err := q.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

type qdrantCollectionList struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

func (q *Qdrant) ListCollections(ctx context.Context) ([]string, error) {
	var list qdrantCollectionList
	if _, err := q.do(ctx, http.MethodGet, "/collections", nil, &list); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Result.Collections))
	for _, c := range list.Result.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// pointID is stable per collection and chunk so retried upserts overwrite instead of duplicating.
func pointID(collection string, c models.Chunk) string {
	key := fmt.Sprintf("%s:%d:%d", collection, c.DocumentIndex, c.Position)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// do sends a JSON request and decodes the response into out. The status code
// is returned alongside any error so callers can tell 404s apart.
func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
