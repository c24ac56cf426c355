package ai

import (
	"context"
	"fmt"

	"docqa-service/internal/logger"
)

// ProbeDimension embeds the probe sentinel and returns the resulting width.
func ProbeDimension(ctx context.Context, e Embedder) (int, error) {
	vec, err := e.Embed(ctx, DimensionProbe)
	if err != nil {
		return 0, err
	}
	if len(vec) == 0 {
		return 0, ErrEmptyEmbedding
	}
	return len(vec), nil
}

// EmbedderConfig names the preferred embedder and the one to use when it is unavailable.
type EmbedderConfig struct {
	Primary  Embedder
	Fallback Embedder // optional
}

// EmbedderChain picks a working embedder at session creation time and
// resolves the same embedder by name when the session is queried later.
type EmbedderChain struct {
	primary  Embedder
	fallback Embedder
	byName   map[string]Embedder // read-only after construction
}

func NewEmbedderChain(cfg EmbedderConfig) (*EmbedderChain, error) {
	if cfg.Primary == nil {
		return nil, fmt.Errorf("primary embedder is required")
	}
	c := &EmbedderChain{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		byName:   map[string]Embedder{cfg.Primary.Name(): cfg.Primary},
	}
	if cfg.Fallback != nil {
		c.byName[cfg.Fallback.Name()] = cfg.Fallback
	}
	return c, nil
}

// Select probes the primary embedder and falls back on failure. The returned
// dimension is measured fresh so a fallback with a different width is handled.
func (c *EmbedderChain) Select(ctx context.Context) (Embedder, int, error) {
	dim, err := ProbeDimension(ctx, c.primary)
	if err == nil {
		return c.primary, dim, nil
	}
	if c.fallback == nil {
		return nil, 0, fmt.Errorf("embedder %s unavailable: %w", c.primary.Name(), err)
	}

	logger.Warn("Primary embedder unavailable, using fallback",
		"primary", c.primary.Name(), "fallback", c.fallback.Name(), "error", err)

	dim, ferr := ProbeDimension(ctx, c.fallback)
	if ferr != nil {
		return nil, 0, fmt.Errorf("embedders %s and %s unavailable: %w", c.primary.Name(), c.fallback.Name(), ferr)
	}
	return c.fallback, dim, nil
}

// ByName returns the embedder a session was indexed with.
func (c *EmbedderChain) ByName(name string) (Embedder, error) {
	e, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedder %q", name)
	}
	return e, nil
}

// Names lists the registered embedders, primary first.
func (c *EmbedderChain) Names() []string {
	names := []string{c.primary.Name()}
	if c.fallback != nil {
		names = append(names, c.fallback.Name())
	}
	return names
}
