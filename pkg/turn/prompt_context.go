package turn

import (
	"sort"
	"time"

	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/prompts"
	"github.com/tradelens-ai/convo-engine/pkg/strategy"
)

// recentTopicWindow is how many trailing user messages feed the
// anti-repetition topics.
const recentTopicWindow = 6

// buildPromptContext assembles the generator's view of the trader from the
// snapshot and conversation metadata. Fields stay zero when unknown, which
// keeps templates requiring them out of the candidate set.
func (s *service) buildPromptContext(req Request) *prompts.Context {
	pctx := &prompts.Context{
		Tier:         req.Tier,
		FirstName:    req.FirstName,
		RecentTopics: recentTopics(req.History),
	}

	now := s.now()
	if last := latestMessageAt(req.History); !last.IsZero() {
		pctx.DaysSinceLastConversation = daysSince(now, last)
	}

	snap := req.Snapshot
	if !snap.HasTrades() {
		return pctx
	}

	pctx.TotalTrades = snap.TotalTrades
	pctx.WinRate = snap.WinRate
	pctx.TotalPnL = snap.TotalPnL
	pctx.BestSymbol = snap.BestSymbol
	pctx.WorstSymbol = snap.WorstSymbol
	pctx.BestSymbolWinRate = symbolWinRate(snap, snap.BestSymbol)
	pctx.WinStreak, pctx.LossStreak = streaks(snap.RecentTrades)
	pctx.OpenPositions = snap.OpenPositions
	pctx.DominantTags = dominantTags(snap.Tags, 2)

	for _, stat := range snap.TopSymbols(3) {
		pctx.PrimarySymbols = append(pctx.PrimarySymbols, stat.Symbol)
	}
	if last := latestTradeAt(snap.RecentTrades); !last.IsZero() {
		pctx.DaysSinceLastTrade = daysSince(now, last)
	}
	return pctx
}

// recentTopics maps the intents of recent user messages onto suggestion
// categories, so follow-up suggestions steer away from ground just covered.
func recentTopics(history []models.ConversationMessage) []string {
	seen := make(map[string]bool)
	var topics []string

	considered := 0
	for i := len(history) - 1; i >= 0 && considered < recentTopicWindow; i-- {
		if history[i].Role != models.ChatRoleUser {
			continue
		}
		considered++

		var topic string
		switch strategy.DetectMessageType(history[i].Content) {
		case strategy.MessageTypeTradingAnalysis:
			topic = string(prompts.CategoryPerformance)
		case strategy.MessageTypeMarketData:
			topic = string(prompts.CategorySymbols)
		case strategy.MessageTypeGeneric:
			topic = string(prompts.CategoryGeneral)
		default:
			continue
		}
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// streaks counts consecutive wins or losses from the most recent trade
// backward. A flat trade ends the run.
func streaks(trades []models.TradeSummary) (wins, losses int) {
	sorted := make([]models.TradeSummary, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ClosedAt.After(sorted[j].ClosedAt)
	})

	for _, tr := range sorted {
		switch {
		case tr.PnL.IsPositive():
			if losses > 0 {
				return
			}
			wins++
		case tr.PnL.IsNegative():
			if wins > 0 {
				return
			}
			losses++
		default:
			return
		}
	}
	return
}

func symbolWinRate(snap *models.TradingSnapshot, symbol string) float64 {
	if symbol == "" {
		return 0
	}
	for _, stat := range snap.Symbols {
		if stat.Symbol == symbol {
			return stat.WinRate
		}
	}
	return 0
}

func dominantTags(tags []models.TagStat, n int) []string {
	if len(tags) == 0 || n <= 0 {
		return nil
	}
	sorted := make([]models.TagStat, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Tag < sorted[j].Tag
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, 0, n)
	for _, t := range sorted[:n] {
		out = append(out, t.Tag)
	}
	return out
}

func latestMessageAt(history []models.ConversationMessage) time.Time {
	var latest time.Time
	for _, m := range history {
		if m.CreatedAt.After(latest) {
			latest = m.CreatedAt
		}
	}
	return latest
}

func latestTradeAt(trades []models.TradeSummary) time.Time {
	var latest time.Time
	for _, tr := range trades {
		if tr.ClosedAt.After(latest) {
			latest = tr.ClosedAt
		}
	}
	return latest
}

func daysSince(now, t time.Time) int {
	if !t.Before(now) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
