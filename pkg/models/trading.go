package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Trading Snapshot
// ============================================================================

// TradingSnapshot is the analytics layer's view of a trader's recent activity,
// assembled upstream and handed to the engine per turn. All monetary amounts
// are account-currency decimals.
type TradingSnapshot struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	WinRate         float64         `json:"win_rate"` // 0..100
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	AveragePnL      decimal.Decimal `json:"average_pnl"`
	BestSymbol      string          `json:"best_symbol,omitempty"`
	WorstSymbol     string          `json:"worst_symbol,omitempty"`
	Symbols         []SymbolStat    `json:"symbols,omitempty"`
	RecentTrades    []TradeSummary  `json:"recent_trades,omitempty"`
	Tags            []TagStat       `json:"tags,omitempty"`
	OpenPositions   int             `json:"open_positions"`
	PerformanceNote string          `json:"performance_note,omitempty"`
}

// SymbolStat aggregates a trader's activity on one instrument.
type SymbolStat struct {
	Symbol  string          `json:"symbol"`
	Trades  int             `json:"trades"`
	WinRate float64         `json:"win_rate"`
	PnL     decimal.Decimal `json:"pnl"`
}

// TradeSummary is a single closed trade as shown in conversation context.
type TradeSummary struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	PnL      decimal.Decimal `json:"pnl"`
	OpenedAt time.Time       `json:"opened_at"`
	ClosedAt time.Time       `json:"closed_at"`
	Note     string          `json:"note,omitempty"`
}

// TagStat counts how often the trader applied one journal tag.
type TagStat struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// HasTrades returns true when the snapshot covers at least one trade.
func (s *TradingSnapshot) HasTrades() bool {
	return s != nil && s.TotalTrades > 0
}

// TopSymbols returns up to n symbols ordered by trade count (descending),
// breaking ties alphabetically so output is stable.
func (s *TradingSnapshot) TopSymbols(n int) []SymbolStat {
	if s == nil || n <= 0 {
		return nil
	}
	out := make([]SymbolStat, len(s.Symbols))
	copy(out, s.Symbols)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trades != out[j].Trades {
			return out[i].Trades > out[j].Trades
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DominantTag returns the most frequent journal tag, or "" when untagged.
func (s *TradingSnapshot) DominantTag() string {
	if s == nil || len(s.Tags) == 0 {
		return ""
	}
	best := s.Tags[0]
	for _, t := range s.Tags[1:] {
		if t.Count > best.Count || (t.Count == best.Count && t.Tag < best.Tag) {
			best = t
		}
	}
	return best.Tag
}

// ============================================================================
// Subscription Tiers
// ============================================================================

// Tier identifies the trader's subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// ValidTiers contains all valid tier values.
var ValidTiers = []Tier{TierFree, TierPro, TierPremium}

// IsValidTier checks if the given tier is valid.
func IsValidTier(t Tier) bool {
	for _, v := range ValidTiers {
		if v == t {
			return true
		}
	}
	return false
}

// ============================================================================
// Context Plan
// ============================================================================

// ContextPlan describes which slice of the trading snapshot accompanies a
// turn. The strategy selector produces it; turn assembly renders it. Zero
// values for TopSymbols and RecentExchanges mean "no limit".
type ContextPlan struct {
	Strategy            string `json:"strategy"`
	IncludeFullSnapshot bool   `json:"include_full_snapshot"`
	TopSymbols          int    `json:"top_symbols"`
	RecentExchanges     int    `json:"recent_exchanges"`
	Summarize           bool   `json:"summarize"`
}
