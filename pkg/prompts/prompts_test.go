package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/models"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(zap.NewNop())
	require.NoError(t, err)
	return g
}

// richContext covers every field a template can require, on a winning run
// with no loss streak.
func richContext() *Context {
	return &Context{
		TotalTrades:        42,
		WinRate:            61.9,
		TotalPnL:           decimal.RequireFromString("1504.25"),
		BestSymbol:         "NVDA",
		WorstSymbol:        "SPY",
		BestSymbolWinRate:  66.7,
		WinStreak:          4,
		PrimarySymbols:     []string{"NVDA", "TSLA", "SPY"},
		DominantTags:       []string{"breakout", "fomo"},
		DaysSinceLastTrade: 2,
		OpenPositions:      2,
		Tier:               models.TierPremium,
		FirstName:          "Jordan",
	}
}

// ============================================================================
// Suggestions
// ============================================================================

func TestSuggestions_RichContextPicksDiverseTop(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Suggestions(richContext(), 3)

	require.Len(t, got, 3)
	assert.Equal(t, "recap-deep", got[0].ID)
	assert.Equal(t, "perf-win-rate-reflection", got[1].ID)
	assert.Equal(t, "symbols-worst-drilldown", got[2].ID)

	seen := map[Category]bool{}
	for _, s := range got {
		assert.False(t, seen[s.Category], "category %s repeated", s.Category)
		seen[s.Category] = true
	}
}

func TestSuggestions_InterpolatesValues(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Suggestions(richContext(), 3)

	require.Len(t, got, 3)
	assert.Contains(t, got[0].Text, "42 trades")
	assert.Contains(t, got[0].Text, "61.9%")
	assert.Contains(t, got[0].Text, "a $1,504.25 gain")
	assert.Contains(t, got[1].Text, "61.9%")
	assert.Contains(t, got[2].Text, "SPY")
}

func TestSuggestions_RepetitionPenaltyDemotesRecentTopics(t *testing.T) {
	g := newTestGenerator(t)
	pctx := richContext()
	pctx.RecentTopics = []string{"recap", "performance"}

	got := g.Suggestions(pctx, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "symbols-worst-drilldown", got[0].ID)
	assert.Equal(t, "streaks-win", got[1].ID)
	assert.Equal(t, "habits-tag-probe", got[2].ID)
	for _, s := range got {
		assert.NotEqual(t, CategoryRecap, s.Category)
		assert.NotEqual(t, CategoryPerformance, s.Category)
	}
}

func TestSuggestions_EmptyContextFallsBackToFloor(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Suggestions(&Context{}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "timing-session", got[0].ID)
	assert.Equal(t, "general-weekly-focus", got[1].ID)
	assert.Equal(t, "general-plan", got[2].ID)
	for _, s := range got {
		assert.NotContains(t, s.Text, "{", "placeholder leaked into rendered text")
	}
}

func TestSuggestions_NilContext(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Suggestions(nil, 0)

	require.Len(t, got, 3)
	for _, s := range got {
		assert.NotEmpty(t, s.Text)
	}
}

func TestSuggestions_CategoryRepeatsOnlyAfterExhaustion(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Suggestions(&Context{}, 4)

	require.Len(t, got, 4)
	assert.Equal(t, "timing-session", got[0].ID)
	assert.Equal(t, "general-weekly-focus", got[1].ID)
	assert.Equal(t, "general-plan", got[2].ID)
	assert.Equal(t, "general-journal", got[3].ID)
}

func TestSuggestions_FreeTierNeverSeesRecap(t *testing.T) {
	g := newTestGenerator(t)
	pctx := richContext()
	pctx.Tier = models.TierFree

	got := g.Suggestions(pctx, 8)

	require.Len(t, got, 8)
	for _, s := range got {
		assert.NotEqual(t, CategoryRecap, s.Category)
	}
}

func TestSuggestions_LossStreakSurfacesRiskCheck(t *testing.T) {
	g := newTestGenerator(t)
	pctx := &Context{
		TotalTrades: 20,
		WinRate:     35.0,
		TotalPnL:    decimal.RequireFromString("-800"),
		LossStreak:  4,
		Tier:        models.TierPro,
	}

	got := g.Suggestions(pctx, 3)

	require.NotEmpty(t, got)
	assert.Equal(t, "risk-loss-streak-check", got[0].ID)
	assert.Contains(t, got[0].Text, "4 losses")
}

func TestSuggestions_Deterministic(t *testing.T) {
	g := newTestGenerator(t)

	first := g.Suggestions(richContext(), 5)
	second := g.Suggestions(richContext(), 5)

	assert.Equal(t, first, second)
}

// ============================================================================
// Greeting
// ============================================================================

func TestGreeting_SalutationTracksClock(t *testing.T) {
	g := newTestGenerator(t)

	cases := []struct {
		hour int
		want string
	}{
		{6, "Good morning."},
		{11, "Good morning."},
		{12, "Good afternoon."},
		{16, "Good afternoon."},
		{17, "Good evening."},
		{21, "Good evening."},
		{23, "Hello."},
		{3, "Hello."},
	}

	for _, tc := range cases {
		now := time.Date(2025, 3, 10, tc.hour, 30, 0, 0, time.UTC)
		got := g.Greeting(&Context{}, now)
		assert.True(t, strings.HasPrefix(got, tc.want),
			"hour %d: got %q, want prefix %q", tc.hour, got, tc.want)
	}
}

func TestGreeting_ReturningAfterGap(t *testing.T) {
	g := newTestGenerator(t)
	pctx := &Context{FirstName: "Jordan", DaysSinceLastConversation: 12}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	got := g.Greeting(pctx, now)

	assert.Equal(t, "Good morning, Jordan. It's been 12 days since we last talked. Want to catch up on your recent trading?", got)
}

func TestGreeting_GapOutranksStreak(t *testing.T) {
	g := newTestGenerator(t)
	pctx := &Context{DaysSinceLastConversation: 9, WinStreak: 5}

	got := g.Greeting(pctx, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))

	assert.Contains(t, got, "since we last talked")
	assert.NotContains(t, got, "riding")
}

func TestGreeting_OpenPositions(t *testing.T) {
	g := newTestGenerator(t)
	pctx := &Context{OpenPositions: 2}

	got := g.Greeting(pctx, time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC))

	assert.Equal(t, "Good evening. You have 2 positions open. Want a quick risk check?", got)
}

func TestGreeting_DefaultLine(t *testing.T) {
	g := newTestGenerator(t)

	got := g.Greeting(&Context{}, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))

	assert.Equal(t, "Hello. What would you like to look at today?", got)
}

func TestGreeting_Deterministic(t *testing.T) {
	g := newTestGenerator(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, g.Greeting(richContext(), now), g.Greeting(richContext(), now))
}
