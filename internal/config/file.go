package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileOverlay is the subset of settings that can be pinned in a YAML file.
// Zero values leave the environment-derived setting untouched.
type FileOverlay struct {
	Chunker struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunker"`
	Retrieval struct {
		TopK int `yaml:"top_k"`
		TopN int `yaml:"top_n"`
	} `yaml:"retrieval"`
	Prompt struct {
		Default  string `yaml:"default"`
		Fallback string `yaml:"fallback"`
	} `yaml:"prompt"`
	Embedder struct {
		Provider         string `yaml:"provider"`
		Model            string `yaml:"model"`
		BaseURL          string `yaml:"base_url"`
		FallbackProvider string `yaml:"fallback_provider"`
		FallbackModel    string `yaml:"fallback_model"`
	} `yaml:"embedder"`
	VectorStore struct {
		Type   string `yaml:"type"`
		Qdrant struct {
			URL       string `yaml:"url"`
			BatchSize int    `yaml:"batch_size"`
		} `yaml:"qdrant"`
	} `yaml:"vector_store"`
}

// ApplyFile overlays a YAML file onto cfg. A missing file is not an error.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var f FileOverlay
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	f.apply(cfg)
	return nil
}

func (f *FileOverlay) apply(cfg *Config) {
	setInt(&cfg.ChunkSize, f.Chunker.Size)
	setInt(&cfg.ChunkOverlap, f.Chunker.Overlap)
	setInt(&cfg.RetrieveTopK, f.Retrieval.TopK)
	setInt(&cfg.RerankTopN, f.Retrieval.TopN)
	setString(&cfg.DefaultPrompt, f.Prompt.Default)
	setString(&cfg.FallbackPhrase, f.Prompt.Fallback)
	setString(&cfg.EmbeddingsProvider, f.Embedder.Provider)
	setString(&cfg.EmbeddingModel, f.Embedder.Model)
	setString(&cfg.EmbeddingBaseURL, f.Embedder.BaseURL)
	setString(&cfg.EmbeddingFallbackProvider, f.Embedder.FallbackProvider)
	setString(&cfg.EmbeddingFallbackModel, f.Embedder.FallbackModel)
	setString(&cfg.VectorStore, f.VectorStore.Type)
	setString(&cfg.QdrantURL, f.VectorStore.Qdrant.URL)
	setInt(&cfg.QdrantBatchSize, f.VectorStore.Qdrant.BatchSize)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
