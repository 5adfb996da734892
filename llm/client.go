// Package llm abstracts the chat model providers behind a single Client
// interface. One file per provider; NewClient picks the implementation
// from the configured provider name.
package llm

import (
	"context"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// Options carries the per-request generation settings. Nil or zero fields
// leave the provider default in place.
type Options struct {
	Temperature  *float64
	MaxTokens    int
	SystemPrompt string
}

// TokenUsage reports the token accounting of one request, when the
// provider exposes it.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Reply is one model turn: the assistant message (possibly carrying tool
// calls) plus its token usage.
type Reply struct {
	Message session.Message
	Usage   TokenUsage
}

// Client is the interface every chat model provider implements.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool, opts Options) (*Reply, error)
}

// NewClient constructs the client for the named provider.
func NewClient(ctx context.Context, provider, model string) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicClient(ctx, model)
	case "openai":
		return NewOpenAIClient(ctx, model)
	case "ollama":
		return NewOllamaClient(model)
	case "gemini":
		return NewGeminiClient(ctx, model)
	case "bedrock":
		return NewBedrockClient(ctx, model)
	default:
		return nil, errors.New("unsupported provider %q", provider)
	}
}
