package prompts

import "github.com/tradelens-ai/convo-engine/pkg/models"

// suggestionTemplates is the full candidate table. Priorities run 10 to 100;
// the general category has no requirements so selection always has a floor.
var suggestionTemplates = []Template{
	// ---- performance -------------------------------------------------------
	{
		ID:       "perf-win-rate-reflection",
		Category: CategoryPerformance,
		Priority: 90,
		Requires: []Field{"win_rate", "total_trades"},
		Text:     "My win rate is {win_rate} across {total_trades}. What should I read into that?",
	},
	{
		ID:       "perf-pnl-recap",
		Category: CategoryPerformance,
		Priority: 85,
		Requires: []Field{"total_pnl"},
		Text:     "I'm at {total_pnl} overall. Where is it actually coming from?",
	},
	{
		ID:       "perf-winning-but-down",
		Category: CategoryPerformance,
		Priority: 70,
		Requires: []Field{"win_rate", "total_pnl"},
		When: func(c *Context) bool {
			return c.WinRate >= 50 && c.TotalPnL.IsNegative()
		},
		Text: "I win {win_rate} of the time but I'm sitting on {total_pnl}. Why?",
	},
	{
		ID:       "perf-consistency",
		Category: CategoryPerformance,
		Priority: 55,
		Requires: []Field{"total_trades"},
		Text:     "Looking at my {total_trades}, how consistent am I really?",
	},

	// ---- risk --------------------------------------------------------------
	{
		ID:       "risk-loss-streak-check",
		Category: CategoryRisk,
		Priority: 95,
		Requires: []Field{"loss_streak"},
		When:     func(c *Context) bool { return c.LossStreak >= 3 },
		Text:     "I've taken {loss_streak} in a row. Should I cut my size until it turns?",
	},
	{
		ID:       "risk-drawdown",
		Category: CategoryRisk,
		Priority: 65,
		Requires: []Field{"total_pnl"},
		When:     func(c *Context) bool { return c.TotalPnL.IsNegative() },
		Text:     "What's the most realistic path out of {total_pnl}?",
	},
	{
		ID:       "risk-open-exposure",
		Category: CategoryRisk,
		Priority: 75,
		Requires: []Field{"open_positions"},
		Text:     "I'm holding {open_positions}. How exposed am I if the market gaps against me?",
	},
	{
		ID:       "risk-sizing",
		Category: CategoryRisk,
		Priority: 50,
		Requires: []Field{"total_trades"},
		Text:     "Is my position sizing consistent across my {total_trades}?",
	},

	// ---- habits ------------------------------------------------------------
	{
		ID:       "habits-tag-probe",
		Category: CategoryHabits,
		Priority: 80,
		Requires: []Field{"dominant_tags"},
		Text:     "My trades keep getting tagged {dominant_tags}. What is that pattern costing me?",
	},
	{
		ID:       "habits-impulse-check",
		Category: CategoryHabits,
		Priority: 60,
		Requires: []Field{"dominant_tags"},
		When:     func(c *Context) bool { return hasTag(c, "fomo") || hasTag(c, "revenge") },
		Text:     "Impulsive entries keep showing up in my journal. How do I cut them out?",
	},
	{
		ID:       "habits-review",
		Category: CategoryHabits,
		Priority: 45,
		Requires: []Field{"total_trades"},
		Text:     "Which habit shows up most across my {total_trades}?",
	},

	// ---- symbols -----------------------------------------------------------
	{
		ID:       "symbols-worst-drilldown",
		Category: CategorySymbols,
		Priority: 90,
		Requires: []Field{"worst_symbol"},
		Text:     "What keeps going wrong with my {worst_symbol} trades?",
	},
	{
		ID:       "symbols-best-lean",
		Category: CategorySymbols,
		Priority: 70,
		Requires: []Field{"best_symbol", "best_symbol_win_rate"},
		Text:     "I win {best_symbol_win_rate} of the time on {best_symbol}. Should I concentrate there?",
	},
	{
		ID:       "symbols-concentration",
		Category: CategorySymbols,
		Priority: 55,
		Requires: []Field{"primary_symbols"},
		Text:     "I mostly trade {primary_symbols}. Am I too concentrated?",
	},
	{
		ID:       "symbols-compare",
		Category: CategorySymbols,
		Priority: 50,
		Requires: []Field{"best_symbol", "worst_symbol"},
		Text:     "What separates my {best_symbol} trades from my {worst_symbol} trades?",
	},

	// ---- timing ------------------------------------------------------------
	{
		ID:       "timing-entries",
		Category: CategoryTiming,
		Priority: 75,
		Requires: []Field{"total_trades"},
		Text:     "Across my {total_trades}, do I tend to enter early or late?",
	},
	{
		ID:       "timing-inactivity",
		Category: CategoryTiming,
		Priority: 65,
		Requires: []Field{"days_since_last_trade"},
		When:     func(c *Context) bool { return c.DaysSinceLastTrade >= 7 },
		Text:     "I haven't traded in {days_since_last_trade}. What should I review before jumping back in?",
	},
	{
		ID:       "timing-session",
		Category: CategoryTiming,
		Priority: 40,
		Text:     "Which time of day do I trade best?",
	},

	// ---- streaks -----------------------------------------------------------
	{
		ID:       "streaks-win",
		Category: CategoryStreaks,
		Priority: 85,
		Requires: []Field{"win_streak"},
		When:     func(c *Context) bool { return c.WinStreak >= 3 },
		Text:     "I've won {win_streak} straight. What's working that I should protect?",
	},
	{
		ID:       "streaks-loss-reflect",
		Category: CategoryStreaks,
		Priority: 80,
		Requires: []Field{"loss_streak"},
		When:     func(c *Context) bool { return c.LossStreak >= 2 },
		Text:     "What do my last {loss_streak} have in common?",
	},
	{
		ID:       "streaks-luck",
		Category: CategoryStreaks,
		Priority: 45,
		Requires: []Field{"win_streak"},
		Text:     "Is this run of {win_streak} skill or just market conditions?",
	},

	// ---- general (always-eligible floor) -----------------------------------
	{
		ID:       "general-weekly-focus",
		Category: CategoryGeneral,
		Priority: 30,
		Text:     "What should I work on this week?",
	},
	{
		ID:       "general-plan",
		Category: CategoryGeneral,
		Priority: 25,
		Text:     "Help me build a plan for tomorrow's session.",
	},
	{
		ID:       "general-journal",
		Category: CategoryGeneral,
		Priority: 20,
		Text:     "What should I be journaling that I'm probably not?",
	},
	{
		ID:       "general-routine",
		Category: CategoryGeneral,
		Priority: 15,
		Text:     "What does a healthy trading routine look like?",
	},
	{
		ID:       "general-review-how",
		Category: CategoryGeneral,
		Priority: 10,
		Text:     "How should I approach reviewing my trading week?",
	},

	// ---- recap (premium) ---------------------------------------------------
	{
		ID:       "recap-deep",
		Category: CategoryRecap,
		Priority: 100,
		Requires: []Field{"total_trades", "win_rate", "total_pnl"},
		When:     func(c *Context) bool { return c.Tier == models.TierPremium },
		Text:     "Give me the full picture: {total_trades}, {win_rate} win rate, {total_pnl}. What's the single biggest lever?",
	},
	{
		ID:       "recap-week",
		Category: CategoryRecap,
		Priority: 60,
		Requires: []Field{"total_pnl"},
		When:     func(c *Context) bool { return c.Tier == models.TierPremium },
		Text:     "Recap my week ending at {total_pnl} and flag anything unusual.",
	},
}

// greetingTemplates are the opener lines appended after the salutation. The
// default has no requirements, so a greeting always carries a line.
var greetingTemplates = []Template{
	{
		ID:       "greet-returning-gap",
		Category: CategoryGeneral,
		Priority: 90,
		Requires: []Field{"days_since_last_conversation"},
		When:     func(c *Context) bool { return c.DaysSinceLastConversation >= 7 },
		Text:     "It's been {days_since_last_conversation} since we last talked. Want to catch up on your recent trading?",
	},
	{
		ID:       "greet-loss-streak",
		Category: CategoryGeneral,
		Priority: 80,
		Requires: []Field{"loss_streak"},
		When:     func(c *Context) bool { return c.LossStreak >= 3 },
		Text:     "Rough stretch with {loss_streak} in a row. Want to look at what changed?",
	},
	{
		ID:       "greet-win-streak",
		Category: CategoryGeneral,
		Priority: 70,
		Requires: []Field{"win_streak"},
		When:     func(c *Context) bool { return c.WinStreak >= 3 },
		Text:     "You're riding {win_streak} in a row. Want to dig into what's working?",
	},
	{
		ID:       "greet-open-positions",
		Category: CategoryGeneral,
		Priority: 60,
		Requires: []Field{"open_positions"},
		Text:     "You have {open_positions} open. Want a quick risk check?",
	},
	{
		ID:       "greet-default",
		Category: CategoryGeneral,
		Priority: 10,
		Text:     "What would you like to look at today?",
	},
}

func hasTag(pctx *Context, tag string) bool {
	for _, t := range pctx.DominantTags {
		if t == tag {
			return true
		}
	}
	return false
}
