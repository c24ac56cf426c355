package ai

import (
	"context"
	"os"
	"time"
	"testing"
)

func TestTokenCounterEnforcesRequestsPerMinute(t *testing.T) {
	tc := NewTokenCounter(RateLimits{RPM: 2, TPM: 1000, RPD: 100})
	for i := 0; i < 2; i++ {
		if !tc.CanConsume(10, 1) {
			t.Fatalf("request %d rejected", i)
		}
		tc.RecordUsage(10, 1)
	}
	if tc.CanConsume(10, 1) {
		t.Error("third request within a minute should be rejected")
	}
}

func TestTokenCounterEnforcesTokenBudget(t *testing.T) {
	tc := NewTokenCounter(RateLimits{RPM: 100, TPM: 50, RPD: 100})
	if tc.CanConsume(51, 1) {
		t.Error("request above TPM should be rejected")
	}
}

func TestGetRateLimitsDefaultsToFree(t *testing.T) {
	if l := getRateLimits("unknown"); l.RPM != 10 {
		t.Errorf("RPM = %d, want 10", l.RPM)
	}
	if l := getRateLimits("tier2"); l.RPM != 2000 {
		t.Errorf("RPM = %d, want 2000", l.RPM)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 1 {
		t.Error("minimum is one token")
	}
	if EstimateTokens("abcdefgh") != 2 {
		t.Error("expected 4 chars per token")
	}
}

func TestGeminiClientLive(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	ctx := context.Background()
	gc, err := NewGeminiClient(ctx, GeminiConfig{APIKey: apiKey, Tier: "free", Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	defer gc.Close()

	out, err := gc.Generate(ctx, "Reply with the single word OK.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out == "" {
		t.Error("empty reply")
	}
}
