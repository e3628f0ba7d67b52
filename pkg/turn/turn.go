// Package turn assembles one conversation turn: it detects intent, selects a
// context strategy, summarizes older history when the strategy calls for it,
// composes the system prompt, and converts messages and tools into the target
// model's provider shape. It owns no policy; each step delegates to the
// package that does.
package turn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/prompts"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
	"github.com/tradelens-ai/convo-engine/pkg/strategy"
	"github.com/tradelens-ai/convo-engine/pkg/summarize"
)

// summaryPreamble leads the spliced-in summary turn so the model reads it as
// prior context rather than a user statement.
const summaryPreamble = "Summary of earlier conversation: "

// ============================================================================
// Request and Plan
// ============================================================================

// Request carries everything the backend knows about the incoming turn.
type Request struct {
	ConversationID uuid.UUID
	ModelID        string
	UserMessage    string
	History        []models.ConversationMessage
	Snapshot       *models.TradingSnapshot
	Tier           models.Tier
	Tools          []llm.ToolDefinition
	FirstName      string
}

// Plan is a provider-ready turn: submit Messages and Tools to the model
// client as-is. Decision and Summary ride along for logging and billing.
type Plan struct {
	Decision     strategy.Decision
	Messages     *llm.ProviderMessages
	Tools        *llm.ProviderTools
	Summary      *summarize.Result
	SystemPrompt string
	Suggestions  []prompts.Suggestion
}

// Service builds turns and conversation openers.
type Service interface {
	BuildTurn(ctx context.Context, req Request) (*Plan, error)
	Greeting(ctx context.Context, req Request) (string, []prompts.Suggestion, error)
}

// Config tunes turn assembly.
type Config struct {
	// SuggestionCount is how many follow-up prompts ride on each plan.
	// Default 3.
	SuggestionCount int
}

type service struct {
	registry    *registry.Registry
	transformer *llm.Transformer
	selector    *strategy.Selector
	summarizer  summarize.Summarizer
	generator   *prompts.Generator
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
}

var _ Service = (*service)(nil)

// NewService wires the conversation engine together. Every dependency is
// required; a nil one is a construction error rather than a latent panic.
func NewService(
	reg *registry.Registry,
	transformer *llm.Transformer,
	selector *strategy.Selector,
	summarizer summarize.Summarizer,
	generator *prompts.Generator,
	cfg Config,
	logger *zap.Logger,
) (Service, error) {
	switch {
	case reg == nil:
		return nil, fmt.Errorf("turn service: registry is required")
	case transformer == nil:
		return nil, fmt.Errorf("turn service: transformer is required")
	case selector == nil:
		return nil, fmt.Errorf("turn service: selector is required")
	case summarizer == nil:
		return nil, fmt.Errorf("turn service: summarizer is required")
	case generator == nil:
		return nil, fmt.Errorf("turn service: generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SuggestionCount <= 0 {
		cfg.SuggestionCount = 3
	}

	return &service{
		registry:    reg,
		transformer: transformer,
		selector:    selector,
		summarizer:  summarizer,
		generator:   generator,
		cfg:         cfg,
		logger:      logger.Named("turn"),
		now:         time.Now,
	}, nil
}

// ============================================================================
// BuildTurn
// ============================================================================

func (s *service) BuildTurn(ctx context.Context, req Request) (*Plan, error) {
	if _, err := s.registry.Get(req.ModelID); err != nil {
		return nil, fmt.Errorf("resolving model %q: %w", req.ModelID, err)
	}

	history := historyToMessages(req.History)
	intent := strategy.DetectMessageType(req.UserMessage)
	pending := append(append([]llm.Message{}, history...), llm.Message{Role: llm.RoleUser, Content: req.UserMessage})
	estimated := strategy.EstimateContextTokens(req.Snapshot, pending)

	decision, err := s.selector.Select(strategy.Inputs{
		Depth:           len(req.History),
		HasTradeData:    req.Snapshot.HasTrades(),
		Tier:            req.Tier,
		Intent:          intent,
		EstimatedTokens: estimated,
	}, req.ModelID)
	if err != nil {
		return nil, fmt.Errorf("selecting context strategy: %w", err)
	}

	ctx = llm.WithConversationContext(ctx, req.ConversationID, uuid.Nil, string(intent))
	s.logger.Debug("turn strategy selected",
		zap.String("conversation_id", req.ConversationID.String()),
		zap.String("model", req.ModelID),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("intent", string(intent)),
		zap.Int("depth", len(req.History)),
		zap.Int("estimated_tokens", estimated))

	contextPlan := strategy.BuildContextForStrategy(decision.Strategy)

	msgs := history
	var summary *summarize.Result
	switch {
	case contextPlan != nil && contextPlan.Summarize && summarize.NeedsSummarization(history, 0, 0):
		older, recent := summarize.SplitMessagesForSummarization(history, 0)
		if len(older) > 0 {
			summary = s.summarizer.Summarize(ctx, older, summarize.Options{})
			msgs = make([]llm.Message, 0, len(recent)+1)
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: summaryPreamble + summary.Summary})
			msgs = append(msgs, recent...)
		}
	case contextPlan != nil && contextPlan.RecentExchanges > 0:
		msgs = lastExchanges(history, contextPlan.RecentExchanges)
	case contextPlan == nil:
		// No trading context on this turn; only the last exchange rides along.
		msgs = lastExchanges(history, 1)
	}

	systemPrompt := s.buildSystemPrompt(req, contextPlan)
	msgs = append(append([]llm.Message{}, msgs...), llm.Message{Role: llm.RoleUser, Content: req.UserMessage})

	var tools *llm.ProviderTools
	if len(req.Tools) > 0 {
		tools, err = s.transformer.ToolsForModel(req.Tools, req.ModelID)
		if err != nil {
			return nil, fmt.Errorf("transforming tools for %q: %w", req.ModelID, err)
		}
	}

	messages, err := s.transformer.MessagesForModel(systemPrompt, msgs, req.ModelID)
	if err != nil {
		return nil, fmt.Errorf("transforming messages for %q: %w", req.ModelID, err)
	}

	return &Plan{
		Decision:     decision,
		Messages:     messages,
		Tools:        tools,
		Summary:      summary,
		SystemPrompt: systemPrompt,
		Suggestions:  s.generator.Suggestions(s.buildPromptContext(req), s.cfg.SuggestionCount),
	}, nil
}

// ============================================================================
// Greeting
// ============================================================================

func (s *service) Greeting(ctx context.Context, req Request) (string, []prompts.Suggestion, error) {
	pctx := s.buildPromptContext(req)
	greeting := s.generator.Greeting(pctx, s.now())
	suggestions := s.generator.Suggestions(pctx, s.cfg.SuggestionCount)
	return greeting, suggestions, nil
}

// ============================================================================
// History Conversion
// ============================================================================

// historyToMessages maps stored conversation rows to transformer messages,
// preserving order.
func historyToMessages(history []models.ConversationMessage) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msg := llm.Message{
			Role:      llm.Role(m.Role),
			Content:   m.Content,
			ToolUseID: m.ToolUseID,
			IsError:   m.IsError,
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolUse{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Input,
			})
		}
		out = append(out, msg)
	}
	return out
}

// lastExchanges keeps the suffix starting at the nth-from-last user message.
// Cutting at a user message keeps tool results attached to the assistant
// turn that requested them.
func lastExchanges(msgs []llm.Message, n int) []llm.Message {
	if n <= 0 {
		return msgs
	}
	seen := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			seen++
			if seen == n {
				return msgs[i:]
			}
		}
	}
	return msgs
}
