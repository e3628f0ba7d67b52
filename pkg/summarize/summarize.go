// Package summarize compresses conversation transcripts and trading context
// into short prose. Summaries are model-backed when a completion client is
// configured, with a deterministic extractive path behind every failure;
// producing a summary can therefore never fail.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/logging"
	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/retry"
)

// summaryTemperature keeps repeated summarization of the same content stable.
const summaryTemperature = 0.3

// summaryMaxTokens bounds the completion; summaries are short by contract.
const summaryMaxTokens = 512

// ============================================================================
// Options and Results
// ============================================================================

// TemplateKind selects which prompt template frames the model call.
type TemplateKind string

const (
	TemplateConversation   TemplateKind = "conversation"
	TemplateTradingContext TemplateKind = "trading_context"
	TemplateDailyRecap     TemplateKind = "daily_recap"
)

// Options tune one summarization call.
type Options struct {
	// MaxLength caps the summary in runes. Default 500.
	MaxLength int
	// Template picks the prompt framing. Default conversation.
	Template TemplateKind
}

// Result is the outcome of one summarization. ProviderUsed is nil and
// TokensUsed zero exactly when the extractive path produced the summary.
type Result struct {
	Summary      string  `json:"summary"`
	TokensUsed   int     `json:"tokens_used"`
	ProviderUsed *string `json:"provider_used,omitempty"`
	Fallback     bool    `json:"fallback"`
}

// RecapRequest asks for a daily recap of one conversation.
type RecapRequest struct {
	ConversationID uuid.UUID
	Messages       []llm.Message
	Options        Options
}

// RecapResult pairs a recap with the conversation it covers.
type RecapResult struct {
	ConversationID uuid.UUID
	Result         *Result
}

// ============================================================================
// Summarizer
// ============================================================================

// Summarizer produces summaries. No method returns an error: failures are
// absorbed into the extractive fallback and flagged on the Result.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []llm.Message, opts Options) *Result
	SummarizeTradingContext(ctx context.Context, snap *models.TradingSnapshot, opts Options) *Result
	GenerateDailyRecaps(ctx context.Context, reqs []RecapRequest) []RecapResult
}

// Config holds the summarizer's operational limits.
type Config struct {
	// MaxSummaryLength is the default rune cap when Options leave it unset.
	MaxSummaryLength int
	// Timeout bounds each model call. Default 30s.
	Timeout time.Duration
	// MinMessages is the default NeedsSummarization floor. Default 10.
	MinMessages int
	// KeepRecent is the default tail kept verbatim by splitting. Default 6.
	KeepRecent int
	// MaxConcurrent bounds recap fan-out. Default 4.
	MaxConcurrent int
}

// DefaultConfig returns the limits used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		MaxSummaryLength: 500,
		Timeout:          30 * time.Second,
		MinMessages:      10,
		KeepRecent:       6,
		MaxConcurrent:    4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxSummaryLength <= 0 {
		c.MaxSummaryLength = def.MaxSummaryLength
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MinMessages <= 0 {
		c.MinMessages = def.MinMessages
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = def.KeepRecent
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	return c
}

type service struct {
	client  llm.CompletionClient
	breaker *llm.CircuitBreaker
	retry   *retry.Config
	pool    *llm.WorkerPool
	cfg     Config
	logger  *zap.Logger
}

var _ Summarizer = (*service)(nil)

// NewSummarizer builds a summarizer around an optional completion client.
// A nil client is a supported deployment (no API key configured): every
// summary comes from the extractive path.
func NewSummarizer(client llm.CompletionClient, cfg Config, logger *zap.Logger) Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("summarizer")
	cfg = cfg.withDefaults()

	if client == nil {
		logger.Info("no summarization model configured, running extractive-only")
	} else {
		logger.Info("summarizer ready", zap.String("model", client.ModelID()))
	}

	return &service{
		client:  client,
		breaker: llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		retry:   retry.DefaultConfig(),
		pool:    llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *service) applyDefaults(opts Options) Options {
	if opts.MaxLength <= 0 {
		opts.MaxLength = s.cfg.MaxSummaryLength
	}
	if opts.Template == "" {
		opts.Template = TemplateConversation
	}
	return opts
}

// ============================================================================
// Summarize
// ============================================================================

// Summarize condenses a transcript. The model path is attempted when a client
// exists; any failure falls back to ExtractiveSummary.
func (s *service) Summarize(ctx context.Context, msgs []llm.Message, opts Options) *Result {
	opts = s.applyDefaults(opts)

	if s.client == nil {
		return fallbackResult(ExtractiveSummary(msgs, opts.MaxLength))
	}

	system, prompt := promptFor(opts.Template, msgs, opts.MaxLength)
	text, tokens, err := s.complete(ctx, system, prompt)
	if err != nil {
		s.logger.Warn("model summarization failed, using extractive fallback",
			zap.String("template", string(opts.Template)),
			zap.Int("messages", len(msgs)),
			zap.String("error", logging.SanitizeError(err)))
		return fallbackResult(ExtractiveSummary(msgs, opts.MaxLength))
	}

	provider := s.client.ModelID()
	return &Result{
		Summary:      truncateAtWord(text, opts.MaxLength),
		TokensUsed:   tokens,
		ProviderUsed: &provider,
	}
}

// SummarizeTradingContext condenses a trading snapshot. The fallback is the
// deterministic structured summary, so the result is non-empty even for an
// empty snapshot.
func (s *service) SummarizeTradingContext(ctx context.Context, snap *models.TradingSnapshot, opts Options) *Result {
	opts = s.applyDefaults(opts)
	opts.Template = TemplateTradingContext

	if s.client == nil {
		return fallbackResult(truncateAtWord(BuildStructuredSummary(snap), opts.MaxLength))
	}

	system, prompt := buildTradingContextPrompt(snap, opts.MaxLength)
	text, tokens, err := s.complete(ctx, system, prompt)
	if err != nil {
		s.logger.Warn("trading context summarization failed, using structured fallback",
			zap.String("error", logging.SanitizeError(err)))
		return fallbackResult(truncateAtWord(BuildStructuredSummary(snap), opts.MaxLength))
	}

	provider := s.client.ModelID()
	return &Result{
		Summary:      truncateAtWord(text, opts.MaxLength),
		TokensUsed:   tokens,
		ProviderUsed: &provider,
	}
}

// GenerateDailyRecaps summarizes many conversations with bounded parallelism.
// One conversation's failure yields that conversation's extractive fallback;
// the rest proceed. Results align with the request order.
func (s *service) GenerateDailyRecaps(ctx context.Context, reqs []RecapRequest) []RecapResult {
	if len(reqs) == 0 {
		return nil
	}

	items := make([]llm.WorkItem[*Result], 0, len(reqs))
	for _, req := range reqs {
		req := req
		opts := req.Options
		if opts.Template == "" {
			opts.Template = TemplateDailyRecap
		}
		items = append(items, llm.WorkItem[*Result]{
			ID: req.ConversationID.String(),
			Execute: func(ctx context.Context) (*Result, error) {
				return s.Summarize(ctx, req.Messages, opts), nil
			},
		})
	}

	results := llm.ProcessBatch(ctx, s.pool, items, func(completed, total int) {
		s.logger.Debug("daily recap progress", zap.Int("completed", completed), zap.Int("total", total))
	})

	out := make([]RecapResult, len(reqs))
	for i, r := range results {
		result := r.Result
		if r.Err != nil || result == nil {
			// Only cancellation reaches here; Summarize itself cannot fail.
			opts := s.applyDefaults(reqs[i].Options)
			result = fallbackResult(ExtractiveSummary(reqs[i].Messages, opts.MaxLength))
		}
		out[i] = RecapResult{ConversationID: reqs[i].ConversationID, Result: result}
	}
	return out
}

// ============================================================================
// Model Path
// ============================================================================

// complete runs one logical completion: a timeout-bounded call retried on
// transient failures inside a single breaker execution. The breaker watches
// the caller's context, not the per-call timeout: an abandoned turn is not a
// provider failure, while a blown timeout is.
func (s *service) complete(ctx context.Context, system, prompt string) (string, int, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var completion *llm.CompletionResult
	err := s.breaker.Execute(ctx, func() error {
		return retry.DoIfRetryable(callCtx, s.retry, func() error {
			result, err := s.client.Complete(callCtx, llm.CompletionRequest{
				System:      system,
				Prompt:      prompt,
				MaxTokens:   summaryMaxTokens,
				Temperature: summaryTemperature,
			})
			if err != nil {
				return err
			}
			completion = result
			return nil
		})
	})
	if err != nil {
		return "", 0, err
	}

	text := cleanCompletion(completion.Text)
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("model returned empty summary: %w", apperrors.ErrEmptyCompletion)
	}
	return text, completion.TokensUsed, nil
}

func fallbackResult(summary string) *Result {
	return &Result{Summary: summary, Fallback: true}
}
