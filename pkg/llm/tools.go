package llm

// TradingChatTools returns the tool definitions for the trading assistant
// chat. These are the canonical shapes; the transformer converts them to
// whatever format the active model expects.
func TradingChatTools() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			"get_performance_summary",
			"Get the user's aggregate trading performance: net P&L, win rate, trade counts, and streaks for a reporting period",
			map[string]ParameterProperty{
				"period": {
					Type:        "string",
					Description: "The reporting period to summarize (default month)",
					Enum:        []string{"today", "week", "month", "quarter", "year", "all"},
				},
				"include_open": {
					Type:        "boolean",
					Description: "Whether open positions count toward the totals",
				},
			},
			[]string{},
		),
		NewToolDefinition(
			"get_symbol_stats",
			"Get per-symbol trading statistics: trade count, win rate, and net P&L for a single ticker",
			map[string]ParameterProperty{
				"symbol": {
					Type:        "string",
					Description: "The ticker symbol to look up (e.g., 'AAPL', 'NVDA')",
				},
				"period": {
					Type:        "string",
					Description: "The reporting period to cover (default all)",
					Enum:        []string{"today", "week", "month", "quarter", "year", "all"},
				},
			},
			[]string{"symbol"},
		),
		NewToolDefinition(
			"get_recent_trades",
			"List the user's most recent trades with entry, exit, size, and realized P&L",
			map[string]ParameterProperty{
				"limit": {
					Type:        "integer",
					Description: "Maximum number of trades to return (default 10)",
				},
				"symbol": {
					Type:        "string",
					Description: "Optional: restrict results to a single ticker symbol",
				},
				"side": {
					Type:        "string",
					Description: "Optional: restrict results to long or short trades",
					Enum:        []string{"long", "short"},
				},
			},
			[]string{},
		),
		NewToolDefinition(
			"search_trade_notes",
			"Search the user's trade journal notes and tags for matching entries",
			map[string]ParameterProperty{
				"query": {
					Type:        "string",
					Description: "Free-text search over note bodies and tags",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of matching notes to return (default 5)",
				},
			},
			[]string{"query"},
		),
	}
}
