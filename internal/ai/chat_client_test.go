package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if len(in) > 0 {
		f.prompt = in[len(in)-1].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatClientGenerate(t *testing.T) {
	fake := &fakeChatModel{reply: "Springfield"}
	var tokens int64
	c := NewChatClientWithModel(fake, ChatConfig{
		Model:    "llama3.1:8b",
		OnTokens: func(n int64, _ string) { tokens = n },
	})

	got, err := c.Generate(context.Background(), "Q: capital?\nA:")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Springfield" {
		t.Errorf("got %q", got)
	}
	if fake.prompt != "Q: capital?\nA:" {
		t.Errorf("prompt = %q", fake.prompt)
	}
	if tokens <= 0 {
		t.Error("token observer not called")
	}
}

func TestChatClientEmptyCompletion(t *testing.T) {
	c := NewChatClientWithModel(&fakeChatModel{reply: "  "}, ChatConfig{Model: "m"})
	if _, err := c.Generate(context.Background(), "p"); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestChatClientPropagatesError(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewChatClientWithModel(&fakeChatModel{err: boom}, ChatConfig{Model: "m"})
	if _, err := c.Generate(context.Background(), "p"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
