package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// tradingTranscript builds an alternating user/assistant transcript of n
// messages discussing performance.
func tradingTranscript(n int) []llm.Message {
	userLines := []string{
		"what's my win rate looking like this month?",
		"why do my NVDA trades keep losing money?",
		"should I tighten my stop losses?",
		"how were my entries on the breakout setups?",
	}
	assistantLines := []string{
		"Your win rate this month is 58%, up from 52%.",
		"Your NVDA losses cluster around late entries after the move has run.",
		"Your average loss is 2.1x your average win, so tighter stops would help.",
		"Entries on breakouts were early and solid; exits gave back most of the edge.",
	}

	msgs := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: userLines[(i/2)%len(userLines)]})
		} else {
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: assistantLines[(i/2)%len(assistantLines)]})
		}
	}
	return msgs
}

func snapshotFixture() *models.TradingSnapshot {
	return &models.TradingSnapshot{
		TotalTrades:   42,
		WinningTrades: 26,
		LosingTrades:  16,
		WinRate:       61.9,
		TotalPnL:      decimal.RequireFromString("1504.25"),
		Symbols: []models.SymbolStat{
			{Symbol: "NVDA", Trades: 18, WinRate: 66.7},
			{Symbol: "TSLA", Trades: 12, WinRate: 58.3},
			{Symbol: "SPY", Trades: 8, WinRate: 50.0},
			{Symbol: "AMD", Trades: 4, WinRate: 75.0},
		},
		Tags: []models.TagStat{
			{Tag: "breakout", Count: 9},
			{Tag: "fomo", Count: 4},
		},
		OpenPositions: 2,
	}
}

func assertResultInvariant(t *testing.T, r *Result) {
	t.Helper()
	extractive := r.TokensUsed == 0 && r.ProviderUsed == nil
	assert.Equal(t, extractive, r.Fallback,
		"fallback flag must match the absence of model usage")
}

// ============================================================================
// Summarize
// ============================================================================

func TestSummarize_ExtractiveOnlyWithoutClient(t *testing.T) {
	s := NewSummarizer(nil, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Zero(t, result.TokensUsed)
	assert.Nil(t, result.ProviderUsed)
	assert.NotEmpty(t, result.Summary)
	assert.LessOrEqual(t, utf8.RuneCountInString(result.Summary), 500)
	assertResultInvariant(t, result)
}

func TestSummarize_ModelPath(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.Model = "gpt-4o-mini"
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "The user reviewed win rate and NVDA losses.", TokensUsed: 74}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	assert.Equal(t, "The user reviewed win rate and NVDA losses.", result.Summary)
	assert.Equal(t, 74, result.TokensUsed)
	require.NotNil(t, result.ProviderUsed)
	assert.Equal(t, "gpt-4o-mini", *result.ProviderUsed)
	assertResultInvariant(t, result)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 512, reqs[0].MaxTokens)
	assert.Equal(t, float32(0.3), reqs[0].Temperature)
	assert.NotEmpty(t, reqs[0].System)
	assert.Contains(t, reqs[0].Prompt, "win rate looking like this month")
}

func TestSummarize_ModelFailureFallsBack(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, errors.New("invalid request")
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Nil(t, result.ProviderUsed)
	assert.NotEmpty(t, result.Summary)
	assert.Equal(t, 1, mock.CallCount(), "permanent errors are not retried")
	assertResultInvariant(t, result)
}

func TestSummarize_RetriesTransientFailure(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if mock.CallCount() == 1 {
			return nil, errors.New("503 service unavailable")
		}
		return &llm.CompletionResult{Text: "Recovered summary.", TokensUsed: 20}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	assert.Equal(t, "Recovered summary.", result.Summary)
	assert.Equal(t, 2, mock.CallCount())
}

func TestSummarize_EmptyCompletionFallsBack(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "   \n", TokensUsed: 3}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Zero(t, result.TokensUsed)
	assert.NotEmpty(t, result.Summary)
	assertResultInvariant(t, result)
}

func TestSummarize_TimeoutFallsBack(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := NewSummarizer(mock, Config{Timeout: 25 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Summary)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSummarize_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop()).(*service)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := s.Summarize(ctx, tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Summary)
	assert.Equal(t, 0, s.breaker.ConsecutiveFailures(), "abandoned turns must not count against the provider")
	assert.Equal(t, llm.CircuitClosed, s.breaker.State())
}

func TestSummarize_TruncatesToMaxLength(t *testing.T) {
	long := strings.Repeat("every trade this week went through the same setup ", 40)
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: long, TokensUsed: 400}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{MaxLength: 120})

	require.NotNil(t, result)
	assert.LessOrEqual(t, utf8.RuneCountInString(result.Summary), 120)
	assert.True(t, strings.HasSuffix(result.Summary, "…"))
}

func TestSummarize_CleansModelArtifacts(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Text:       "<thinking>how best to phrase this</thinking>```text\nThe user focused on exits.\n```",
			TokensUsed: 30,
		}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.Summarize(context.Background(), tradingTranscript(12), Options{})

	require.NotNil(t, result)
	assert.Equal(t, "The user focused on exits.", result.Summary)
}

// ============================================================================
// SummarizeTradingContext
// ============================================================================

func TestSummarizeTradingContext_FallbackIsStructured(t *testing.T) {
	s := NewSummarizer(nil, Config{}, zap.NewNop())

	result := s.SummarizeTradingContext(context.Background(), snapshotFixture(), Options{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Summary, "42 trades")
	assert.Contains(t, result.Summary, "61.9% win rate")
	assert.Contains(t, result.Summary, "+1504.25")
	assertResultInvariant(t, result)
}

func TestSummarizeTradingContext_ModelPath(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	result := s.SummarizeTradingContext(context.Background(), snapshotFixture(), Options{})

	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	require.NotNil(t, result.ProviderUsed)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "42 trades")
	assert.Contains(t, reqs[0].Prompt, "Open positions: 2")
}

func TestSummarizeTradingContext_EmptySnapshotNeverEmpty(t *testing.T) {
	s := NewSummarizer(nil, Config{}, zap.NewNop())

	for _, snap := range []*models.TradingSnapshot{nil, {}} {
		result := s.SummarizeTradingContext(context.Background(), snap, Options{})
		require.NotNil(t, result)
		assert.Equal(t, "No trading activity recorded yet.", result.Summary)
	}
}

// ============================================================================
// GenerateDailyRecaps
// ============================================================================

func TestGenerateDailyRecaps_AlignsWithRequestOrder(t *testing.T) {
	s := NewSummarizer(nil, Config{}, zap.NewNop())

	reqs := []RecapRequest{
		{ConversationID: uuid.New(), Messages: tradingTranscript(6)},
		{ConversationID: uuid.New(), Messages: tradingTranscript(8)},
		{ConversationID: uuid.New(), Messages: tradingTranscript(4)},
	}

	out := s.GenerateDailyRecaps(context.Background(), reqs)

	require.Len(t, out, len(reqs))
	for i := range reqs {
		assert.Equal(t, reqs[i].ConversationID, out[i].ConversationID)
		require.NotNil(t, out[i].Result)
		assert.NotEmpty(t, out[i].Result.Summary)
	}
}

func TestGenerateDailyRecaps_OneFailureDoesNotSpread(t *testing.T) {
	const marker = "poison-pill-conversation"

	mock := llm.NewMockCompletionClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if strings.Contains(req.Prompt, marker) {
			return nil, errors.New("invalid request")
		}
		return &llm.CompletionResult{Text: "Recap of the day's review.", TokensUsed: 15}, nil
	}
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	poisoned := tradingTranscript(6)
	poisoned[0].Content = fmt.Sprintf("%s: %s", marker, poisoned[0].Content)

	reqs := []RecapRequest{
		{ConversationID: uuid.New(), Messages: tradingTranscript(6)},
		{ConversationID: uuid.New(), Messages: poisoned},
		{ConversationID: uuid.New(), Messages: tradingTranscript(6)},
	}

	out := s.GenerateDailyRecaps(context.Background(), reqs)

	require.Len(t, out, 3)
	assert.False(t, out[0].Result.Fallback)
	assert.True(t, out[1].Result.Fallback)
	assert.False(t, out[2].Result.Fallback)
	for _, r := range out {
		assert.NotEmpty(t, r.Result.Summary)
		assertResultInvariant(t, r.Result)
	}
}

func TestGenerateDailyRecaps_UsesRecapTemplate(t *testing.T) {
	mock := llm.NewMockCompletionClient()
	s := NewSummarizer(mock, Config{}, zap.NewNop())

	s.GenerateDailyRecaps(context.Background(), []RecapRequest{
		{ConversationID: uuid.New(), Messages: tradingTranscript(4)},
	})

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "recap")
}

func TestGenerateDailyRecaps_Empty(t *testing.T) {
	s := NewSummarizer(nil, Config{}, zap.NewNop())
	assert.Nil(t, s.GenerateDailyRecaps(context.Background(), nil))
}

// ============================================================================
// Config
// ============================================================================

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	custom := Config{MaxSummaryLength: 200, MinMessages: 4}.withDefaults()
	assert.Equal(t, 200, custom.MaxSummaryLength)
	assert.Equal(t, 4, custom.MinMessages)
	assert.Equal(t, 30*time.Second, custom.Timeout)
	assert.Equal(t, 6, custom.KeepRecent)
	assert.Equal(t, 4, custom.MaxConcurrent)
}
