package summarize

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// ============================================================================
// ExtractiveSummary
// ============================================================================

func TestExtractiveSummary_MatchesTopics(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "my win rate tanked this week"},
		{Role: llm.RoleAssistant, Content: "It dipped to 44%, mostly from entering too late on momentum names."},
		{Role: llm.RoleUser, Content: "should I manage risk differently?"},
	}

	summary := ExtractiveSummary(msgs, 500)

	assert.Contains(t, summary, "win rate")
	assert.Contains(t, summary, "entry and exit timing")
	assert.Contains(t, summary, "risk management")
}

func TestExtractiveSummary_TopicsFollowTableOrder(t *testing.T) {
	// Mentioned in reverse table order; the summary lists them in table order.
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "I want to improve my strategy around risk"},
	}

	summary := ExtractiveSummary(msgs, 500)

	riskIdx := strings.Index(summary, "risk management")
	strategyIdx := strings.Index(summary, "trading strategy")
	improveIdx := strings.Index(summary, "improvement areas")
	require.GreaterOrEqual(t, riskIdx, 0)
	require.GreaterOrEqual(t, strategyIdx, 0)
	require.GreaterOrEqual(t, improveIdx, 0)
	assert.Less(t, riskIdx, strategyIdx)
	assert.Less(t, strategyIdx, improveIdx)
}

func TestExtractiveSummary_CapsAtThreeTopics(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "win rate, pnl, my entries, and which symbols I should drop"},
	}

	summary := ExtractiveSummary(msgs, 500)

	assert.Contains(t, summary, "win rate")
	assert.Contains(t, summary, "profit and loss")
	assert.Contains(t, summary, "entry and exit timing")
	assert.NotContains(t, summary, "specific symbols")
}

func TestExtractiveSummary_QuotesLatestAssistantReply(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "what's my biggest leak?"},
		{Role: llm.RoleAssistant, Content: "Hard to say without the numbers in front of me."},
		{Role: llm.RoleUser, Content: "check again please"},
		{Role: llm.RoleAssistant, Content: "Your biggest leak is oversized losers. Cutting position size on B setups would help."},
	}

	summary := ExtractiveSummary(msgs, 500)

	assert.Contains(t, summary, "Most recent point: Your biggest leak is oversized losers.")
	assert.NotContains(t, summary, "Cutting position size")
}

func TestExtractiveSummary_SkipsToolMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "pull my stats"},
		{Role: llm.RoleTool, ToolUseID: "call_1", Content: `{"win_rate":0.61,"strategy":"breakout"}`},
	}

	summary := ExtractiveSummary(msgs, 500)

	// Tool payloads carry field names that look like topics; they don't count.
	assert.NotContains(t, summary, "win rate")
	assert.NotContains(t, summary, "trading strategy")
}

func TestExtractiveSummary_DefaultLineWhenNothingMatches(t *testing.T) {
	msgs := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

	assert.Equal(t, "Discussion about trading activity and performance.", ExtractiveSummary(msgs, 500))
	assert.Equal(t, "Discussion about trading activity and performance.", ExtractiveSummary(nil, 500))
}

func TestExtractiveSummary_RespectsMaxLength(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "win rate, losses, entries, risk, strategy"},
		{Role: llm.RoleAssistant, Content: strings.Repeat("A very long reply about everything at once. ", 20)},
	}

	for _, max := range []int{40, 80, 500} {
		summary := ExtractiveSummary(msgs, max)
		assert.LessOrEqual(t, utf8.RuneCountInString(summary), max)
		assert.NotEmpty(t, summary)
	}
}

// ============================================================================
// BuildStructuredSummary
// ============================================================================

func TestBuildStructuredSummary(t *testing.T) {
	got := BuildStructuredSummary(snapshotFixture())

	want := "42 trades, 61.9% win rate, +1504.25 net P&L." +
		" Most traded: NVDA (18), TSLA (12), SPY (8)." +
		" Most frequent tag: breakout."
	assert.Equal(t, want, got)
}

func TestBuildStructuredSummary_NegativePnL(t *testing.T) {
	snap := &models.TradingSnapshot{
		TotalTrades: 7,
		WinRate:     28.6,
		TotalPnL:    decimal.RequireFromString("-230.5"),
	}

	got := BuildStructuredSummary(snap)

	assert.Equal(t, "7 trades, 28.6% win rate, -230.50 net P&L.", got)
}

func TestBuildStructuredSummary_NoTrades(t *testing.T) {
	assert.Equal(t, "No trading activity recorded yet.", BuildStructuredSummary(nil))
	assert.Equal(t, "No trading activity recorded yet.", BuildStructuredSummary(&models.TradingSnapshot{}))
}

// ============================================================================
// NeedsSummarization / SplitMessagesForSummarization
// ============================================================================

func TestNeedsSummarization(t *testing.T) {
	assert.False(t, NeedsSummarization(tradingTranscript(9), 10, time.Hour))
	assert.True(t, NeedsSummarization(tradingTranscript(10), 10, time.Hour))
	assert.True(t, NeedsSummarization(tradingTranscript(25), 10, time.Hour))

	// Zero threshold falls back to the default of 10.
	assert.False(t, NeedsSummarization(tradingTranscript(9), 0, 0))
	assert.True(t, NeedsSummarization(tradingTranscript(10), 0, 0))
}

func TestSplitMessagesForSummarization_Conservation(t *testing.T) {
	msgs := tradingTranscript(14)

	for keep := 1; keep <= len(msgs)+2; keep++ {
		older, recent := SplitMessagesForSummarization(msgs, keep)

		require.Equal(t, len(msgs), len(older)+len(recent), "keep=%d", keep)
		rejoined := append(append([]llm.Message{}, older...), recent...)
		assert.Equal(t, msgs, rejoined, "keep=%d", keep)
		if len(recent) > 0 {
			assert.NotEqual(t, llm.RoleTool, recent[0].Role, "keep=%d", keep)
		}
	}
}

func TestSplitMessagesForSummarization_BacksUpPastToolRun(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "how am I doing?"},
		{Role: llm.RoleAssistant, Content: "Let me pull the numbers."},
		{Role: llm.RoleUser, Content: "compare NVDA and TSLA"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolUse{{ID: "call_1", Name: "get_symbol_stats"}}},
		{Role: llm.RoleTool, ToolUseID: "call_1", Content: `{"trades":18}`},
		{Role: llm.RoleTool, ToolUseID: "call_1", Content: `{"trades":12}`},
		{Role: llm.RoleAssistant, Content: "NVDA is carrying your month."},
		{Role: llm.RoleUser, Content: "thanks"},
	}

	// A naive split at len-3 would open the tail on a tool result.
	older, recent := SplitMessagesForSummarization(msgs, 3)

	require.Len(t, recent, 5)
	assert.Equal(t, llm.RoleAssistant, recent[0].Role)
	assert.True(t, llm.HasToolCalls(recent[0]))
	assert.Len(t, older, 3)
}

func TestSplitMessagesForSummarization_ShortTranscriptKeptWhole(t *testing.T) {
	msgs := tradingTranscript(4)

	older, recent := SplitMessagesForSummarization(msgs, 6)

	assert.Nil(t, older)
	assert.Equal(t, msgs, recent)
}

func TestSplitMessagesForSummarization_DefaultKeepRecent(t *testing.T) {
	msgs := tradingTranscript(20)

	older, recent := SplitMessagesForSummarization(msgs, 0)

	assert.Len(t, older, 14)
	assert.Len(t, recent, 6)
}

// ============================================================================
// Completion Cleanup
// ============================================================================

func TestCleanCompletion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "A clean summary.", "A clean summary."},
		{"think tag", "<think>planning</think>A clean summary.", "A clean summary."},
		{"thinking tag", "<thinking>hm\nmultiline</thinking>\nA clean summary.", "A clean summary."},
		{"code fence", "```\nA clean summary.\n```", "A clean summary."},
		{"fence with language", "```text\nA clean summary.\n```", "A clean summary."},
		{"whitespace", "  A clean summary.\n\n", "A clean summary."},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanCompletion(tc.in))
		})
	}
}

func TestTruncateAtWord(t *testing.T) {
	assert.Equal(t, "short", truncateAtWord("short", 10))
	assert.Equal(t, "exactly ten", truncateAtWord("exactly ten", 11))

	long := "the quick brown fox jumps over the lazy dog"
	got := truncateAtWord(long, 20)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 20)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "the quick brown…", got)

	// Cuts land on word boundaries, not mid-word.
	assert.NotContains(t, truncateAtWord(long, 13), "brow…")
}

func TestTruncateAtWord_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("résumé à la café ", 10)

	for _, max := range []int{10, 25, 50} {
		got := truncateAtWord(text, max)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), max)
		assert.True(t, utf8.ValidString(got))
	}
}
