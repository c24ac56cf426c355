package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ChatClient is a Generator over any OpenAI-compatible chat endpoint,
// including Ollama's /v1 (the default llama3.1:8b deployment).
type ChatClient struct {
	chat     model.BaseChatModel
	model    string
	timeout  time.Duration
	onTokens func(tokens int64, model string)
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	OnTokens    func(tokens int64, model string)
}

func NewChatClient(ctx context.Context, cfg ChatConfig) (*ChatClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	temp := float32(cfg.Temperature)
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChatClientWithModel(chat, cfg), nil
}

// NewChatClientWithModel wraps an already constructed eino chat model.
func NewChatClientWithModel(chat model.BaseChatModel, cfg ChatConfig) *ChatClient {
	return &ChatClient{chat: chat, model: cfg.Model, timeout: cfg.Timeout, onTokens: cfg.OnTokens}
}

func (c *ChatClient) Name() string { return "openai:" + c.model }

func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("chat-client").Start(ctx, "chat.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.estimated_tokens", EstimateTokens(prompt)),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		span.SetAttributes(attribute.Bool("llm.error", true))
		return "", err
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyCompletion
	}

	if c.onTokens != nil {
		tokens := int64(EstimateTokens(prompt) + EstimateTokens(msg.Content))
		if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
			tokens = int64(msg.ResponseMeta.Usage.TotalTokens)
		}
		c.onTokens(tokens, c.model)
	}
	return msg.Content, nil
}
