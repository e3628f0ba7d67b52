package turn

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/summarize"
)

const assistantCharter = `You are the TradeLens assistant, a trading analytics copilot. You help the trader understand their own results using their journal and performance data. Be direct and concrete; cite their numbers when you have them. Never give buy or sell recommendations; you analyze what already happened.`

const toolGuidance = `## Tools
Use the provided tools to pull the trader's data before answering performance questions. Prefer fresh tool results over numbers from earlier in the conversation.`

// buildSystemPrompt composes charter, trading-context block, and tool
// guidance. The context block's size tracks the plan: full snapshot,
// structured summary, or nothing at all.
func (s *service) buildSystemPrompt(req Request, plan *models.ContextPlan) string {
	var b strings.Builder
	b.WriteString(assistantCharter)

	if block := contextBlock(plan, req.Snapshot); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	if len(req.Tools) > 0 {
		b.WriteString("\n\n")
		b.WriteString(toolGuidance)
	}
	return b.String()
}

func contextBlock(plan *models.ContextPlan, snap *models.TradingSnapshot) string {
	if plan == nil {
		return ""
	}

	var b strings.Builder
	switch {
	case plan.IncludeFullSnapshot:
		b.WriteString("## Trading context\n")
		b.WriteString(summarize.BuildStructuredSummary(snap))
		writeSymbolLines(&b, snap, plan.TopSymbols)
		writeTradeLines(&b, snap)
		writeSnapshotNotes(&b, snap)
	case plan.Summarize:
		b.WriteString("## Trading context\n")
		b.WriteString(summarize.BuildStructuredSummary(snap))
		writeSymbolLines(&b, snap, plan.TopSymbols)
	default:
		// MINIMAL: recent exchanges only, no trading block.
		return ""
	}
	return b.String()
}

// writeSymbolLines renders per-symbol stats. limit <= 0 means all symbols.
func writeSymbolLines(b *strings.Builder, snap *models.TradingSnapshot, limit int) {
	if snap == nil || len(snap.Symbols) == 0 {
		return
	}
	if limit <= 0 || limit > len(snap.Symbols) {
		limit = len(snap.Symbols)
	}
	b.WriteString("\n\nBy symbol:")
	for _, stat := range snap.TopSymbols(limit) {
		fmt.Fprintf(b, "\n- %s: %d trades, %.1f%% win rate, %s",
			stat.Symbol, stat.Trades, stat.WinRate, signed(stat.PnL))
	}
}

// writeTradeLines renders the snapshot's recent closed trades.
func writeTradeLines(b *strings.Builder, snap *models.TradingSnapshot) {
	if snap == nil || len(snap.RecentTrades) == 0 {
		return
	}
	b.WriteString("\n\nRecent trades:")
	for _, tr := range snap.RecentTrades {
		fmt.Fprintf(b, "\n- %s %s %s closed %s",
			tr.Symbol, tr.Side, signed(tr.PnL), tr.ClosedAt.Format("2006-01-02"))
		if tr.Note != "" {
			fmt.Fprintf(b, " (%s)", tr.Note)
		}
	}
}

func writeSnapshotNotes(b *strings.Builder, snap *models.TradingSnapshot) {
	if snap == nil {
		return
	}
	if snap.OpenPositions > 0 {
		fmt.Fprintf(b, "\n\nOpen positions: %d.", snap.OpenPositions)
	}
	if snap.PerformanceNote != "" {
		fmt.Fprintf(b, "\n%s", snap.PerformanceNote)
	}
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
