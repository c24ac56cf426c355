package ai

import (
	"context"
	"fmt"

	"docqa-service/internal/config"
	"docqa-service/internal/telemetry"
)

// NewEmbedder builds one embedder for provider/model from cfg.
func NewEmbedder(ctx context.Context, cfg *config.Config, provider, model string) (Embedder, error) {
	switch provider {
	case "openai", "ollama", "":
		return NewOpenAIEmbedder(OpenAIEmbedderConfig{
			BaseURL: cfg.EmbeddingBaseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   model,
			Timeout: cfg.EmbeddingTimeout,
		})
	case "google", "gemini":
		return NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, model)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", provider)
	}
}

// NewEmbedderChainFromConfig wires the primary embedder and, when configured,
// the fallback. The fallback defaults to the primary's provider.
func NewEmbedderChainFromConfig(ctx context.Context, cfg *config.Config) (*EmbedderChain, error) {
	primary, err := NewEmbedder(ctx, cfg, cfg.EmbeddingsProvider, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("primary embedder: %w", err)
	}

	var fallback Embedder
	if cfg.EmbeddingFallbackModel != "" && cfg.EmbeddingFallbackModel != cfg.EmbeddingModel {
		provider := cfg.EmbeddingFallbackProvider
		if provider == "" {
			provider = cfg.EmbeddingsProvider
		}
		fallback, err = NewEmbedder(ctx, cfg, provider, cfg.EmbeddingFallbackModel)
		if err != nil {
			return nil, fmt.Errorf("fallback embedder: %w", err)
		}
	}
	return NewEmbedderChain(EmbedderConfig{Primary: primary, Fallback: fallback})
}

// NewGeneratorFromConfig returns the configured answer generator.
func NewGeneratorFromConfig(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (Generator, error) {
	switch cfg.GenerationProvider {
	case "gemini", "google":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:        cfg.GeminiAPIKey,
			Model:         cfg.GenerationModel,
			Tier:          cfg.GeminiTier,
			Temperature:   cfg.GenerationTemperature,
			Timeout:       cfg.GenerationTimeout,
			OnStateChange: metrics.RecordCircuitBreakerState,
			OnTokens:      metrics.RecordTokensUsed,
		})
	case "openai", "ollama", "":
		return NewChatClient(ctx, ChatConfig{
			BaseURL:     cfg.GenerationBaseURL,
			APIKey:      cfg.GenerationAPIKey,
			Model:       cfg.GenerationModel,
			Temperature: cfg.GenerationTemperature,
			Timeout:     cfg.GenerationTimeout,
			OnTokens:    metrics.RecordTokensUsed,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}

// NewRerankerFromConfig uses the cross-encoder service when RERANKER_URL is
// set and the lexical reranker otherwise.
func NewRerankerFromConfig(cfg *config.Config, metrics *telemetry.Metrics) Reranker {
	if cfg.RerankerURL == "" {
		return NewLexicalReranker()
	}
	return NewCrossEncoderReranker(CrossEncoderConfig{
		URL:           cfg.RerankerURL,
		Model:         cfg.RerankerModel,
		Timeout:       cfg.EmbeddingTimeout,
		OnStateChange: metrics.RecordCircuitBreakerState,
	})
}
