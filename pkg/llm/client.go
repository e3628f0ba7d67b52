package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// defaultMaxTokens bounds completions whose request did not set a limit.
const defaultMaxTokens = 1024

// ClientConfig holds configuration for creating a completion client.
type ClientConfig struct {
	Model   string // Model ID, e.g. "claude-haiku-4-5" or "gpt-4o-mini"
	APIKey  string // Optional for local OpenAI-compatible endpoints
	BaseURL string // Endpoint override, OpenAI-format models only
}

// NewCompletionClient builds the completion client matching the configured
// model's provider. An unknown model ID fails here, at construction, not on
// first use.
func NewCompletionClient(cfg ClientConfig, reg *registry.Registry, logger *zap.Logger) (CompletionClient, error) {
	desc, err := reg.Get(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("resolve completion model: %w", err)
	}
	switch desc.Provider {
	case registry.ProviderAnthropic:
		return NewAnthropicCompletionClient(cfg, logger)
	case registry.ProviderOpenAI:
		return NewOpenAICompletionClient(cfg, logger)
	default:
		return nil, fmt.Errorf("no completion client for provider %q", desc.Provider)
	}
}
