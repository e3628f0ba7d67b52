// assess-strategy previews context strategy decisions and prompt suggestions
// for a fixture of conversation turns. It exercises the real engine wiring
// (registry, transformer, selector, summarizer, prompt generator) with no
// network calls: the summarizer runs in extractive-only mode.
//
// Used to eyeball threshold tuning before changing strategy config in
// production. One output line per case: detected intent, estimated context
// tokens, the chosen strategy with its reason, and the top suggestions.
//
// Usage: go run ./scripts/assess-strategy -fixture cases.json [-config config.yaml] [-model gpt-4o]
//
// Fixture format (JSON array):
//
//	[
//	  {
//	    "name": "deep premium analysis",
//	    "model": "claude-sonnet-4-5",
//	    "message": "how is my win rate trending?",
//	    "tier": "premium",
//	    "history": [{"role": "user", "content": "..."}, ...],
//	    "snapshot": {"total_trades": 42, "win_rate": 61.9, ...}
//	  }
//	]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/config"
	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/prompts"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
	"github.com/tradelens-ai/convo-engine/pkg/strategy"
	"github.com/tradelens-ai/convo-engine/pkg/summarize"
	"github.com/tradelens-ai/convo-engine/pkg/turn"
)

type fixtureCase struct {
	Name      string                  `json:"name"`
	Model     string                  `json:"model,omitempty"`
	Message   string                  `json:"message"`
	Tier      string                  `json:"tier,omitempty"`
	FirstName string                  `json:"first_name,omitempty"`
	History   []fixtureMessage        `json:"history,omitempty"`
	Snapshot  *models.TradingSnapshot `json:"snapshot,omitempty"`
}

type fixtureMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func main() {
	configPath := flag.String("config", "", "config YAML path (default: config.yaml if present, else env)")
	fixturePath := flag.String("fixture", "", "JSON fixture of turn cases (required)")
	defaultModel := flag.String("model", "gpt-4o", "model id for cases that do not name one")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -fixture cases.json [-config config.yaml] [-model gpt-4o]\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	cases, err := loadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load fixture: %v\n", err)
		os.Exit(1)
	}
	if len(cases) == 0 {
		fmt.Fprintf(os.Stderr, "Fixture %s contains no cases\n", *fixturePath)
		os.Exit(1)
	}

	svc, err := buildService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	failures := 0
	for i, c := range cases {
		if err := assessCase(ctx, svc, c, i, *defaultModel, cfg.Prompts.SuggestionCount); err != nil {
			fmt.Fprintf(os.Stderr, "Case %q failed: %v\n", caseName(c, i), err)
			failures++
		}
	}

	fmt.Fprintf(os.Stderr, "Assessed %d cases, %d failed\n", len(cases), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func loadFixture(path string) ([]fixtureCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []fixtureCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cases, nil
}

// buildService wires the engine the way production does, minus the completion
// client: a nil client keeps the summarizer on its extractive path.
func buildService(cfg *config.Config) (turn.Service, error) {
	logger := zap.NewNop()

	reg, err := cfg.BuildRegistry(logger)
	if err != nil {
		return nil, err
	}

	transformer := llm.NewTransformer(reg, logger)

	selector, err := strategy.NewSelector(reg, selectorConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	generator, err := prompts.NewGenerator(logger)
	if err != nil {
		return nil, err
	}

	summarizer := summarize.NewSummarizer(nil, summarize.Config{
		MaxSummaryLength: cfg.Summarizer.MaxSummaryLength,
		Timeout:          cfg.Summarizer.Timeout(),
		MinMessages:      cfg.Summarizer.MinMessages,
		KeepRecent:       cfg.Summarizer.KeepRecent,
	}, logger)

	return turn.NewService(reg, transformer, selector, summarizer, generator, turn.Config{
		SuggestionCount: cfg.Prompts.SuggestionCount,
	}, logger)
}

func selectorConfig(cfg *config.Config) strategy.Config {
	sc := strategy.Config{
		Base: strategy.Thresholds{
			SummaryDepth:      cfg.Strategy.SummaryDepth,
			MinimalDepth:      cfg.Strategy.MinimalDepth,
			ContextTokenLimit: cfg.Strategy.ContextTokenLimit,
		},
		ProviderOverrides: make(map[registry.Provider]strategy.Thresholds, len(cfg.Strategy.ProviderOverrides)),
	}
	for provider, t := range cfg.Strategy.ProviderOverrides {
		sc.ProviderOverrides[registry.Provider(provider)] = strategy.Thresholds{
			SummaryDepth:      t.SummaryDepth,
			MinimalDepth:      t.MinimalDepth,
			ContextTokenLimit: t.ContextTokenLimit,
		}
	}
	return sc
}

func assessCase(ctx context.Context, svc turn.Service, c fixtureCase, index int, defaultModel string, suggestionCount int) error {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	tier := models.Tier(c.Tier)
	if tier == "" {
		tier = models.TierFree
	}

	history := make([]models.ConversationMessage, 0, len(c.History))
	for _, m := range c.History {
		history = append(history, models.ConversationMessage{
			Role:    models.ChatRole(m.Role),
			Content: m.Content,
		})
	}

	plan, err := svc.BuildTurn(ctx, turn.Request{
		ConversationID: uuid.New(),
		ModelID:        model,
		UserMessage:    c.Message,
		History:        history,
		Snapshot:       c.Snapshot,
		Tier:           tier,
		FirstName:      c.FirstName,
	})
	if err != nil {
		return err
	}

	intent := strategy.DetectMessageType(c.Message)
	estimate := strategy.EstimateContextTokens(c.Snapshot, estimationMessages(c))

	fmt.Printf("%-28s intent=%-16s est_tokens=%-6d strategy=%-8s reason=%q suggestions=%s\n",
		caseName(c, index), intent, estimate, plan.Decision.Strategy, plan.Decision.Reason,
		formatSuggestions(plan.Suggestions, suggestionCount))
	return nil
}

// estimationMessages rebuilds the message slice the selector sees: the full
// history plus the pending user message.
func estimationMessages(c fixtureCase) []llm.Message {
	msgs := make([]llm.Message, 0, len(c.History)+1)
	for _, m := range c.History {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: c.Message})
}

func formatSuggestions(suggestions []prompts.Suggestion, limit int) string {
	if len(suggestions) == 0 {
		return "(none)"
	}
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	texts := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		texts = append(texts, s.Text)
	}
	return "[" + strings.Join(texts, " | ") + "]"
}

func caseName(c fixtureCase, index int) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("case-%d", index)
}
