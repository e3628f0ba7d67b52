package strategy

import "regexp"

// MessageType buckets an incoming user message by intent.
type MessageType string

const (
	MessageTypeGeneric         MessageType = "generic"
	MessageTypeMarketData      MessageType = "market_data"
	MessageTypeTradingAnalysis MessageType = "trading_analysis"
	MessageTypeQuestion        MessageType = "question"
)

// Pattern sets are evaluated in bucket order; the first matching bucket wins
// and anything unmatched falls through to question. A false negative degrades
// toward more context, which is the safe direction.
var (
	genericPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(hi|hiya|hello|hey|howdy|yo)\b`),
		regexp.MustCompile(`(?i)^\s*(many thanks|thanks( a lot| so much| again)?|thank you( so much| very much)?|thx|cheers)\s*[!.]*\s*$`),
		regexp.MustCompile(`(?i)\b(thanks|thank you|thx|cheers)\s*[!.]*\s*$`),
		regexp.MustCompile(`(?i)\b(bye|goodbye|good night|see you( later)?)\s*[!.]*\s*$`),
		regexp.MustCompile(`(?i)\bgood (morning|afternoon|evening)\b`),
		regexp.MustCompile(`(?i)\bwho are you\b`),
		regexp.MustCompile(`(?i)\bwhat (can|do) you (do|know)\s*[?!.]*\s*$`),
		regexp.MustCompile(`(?i)\bhow (are you|is it going)\s*[?!.]*\s*$`),
		regexp.MustCompile(`(?i)^\s*(ok|okay|cool|nice|great|got it|sounds good)\s*[!.]*\s*$`),
	}

	marketDataPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(price|prices|quote|quotes)\b`),
		regexp.MustCompile(`(?i)\bmarket\s+(open|opens|close|closes|closed|hours)\b`),
		regexp.MustCompile(`(?i)\b(trading at|last traded|current price|premarket|after.?hours)\b`),
		regexp.MustCompile(`(?i)\bhow much is\b`),
		regexp.MustCompile(`(?i)\b(ticker|chart|candle|volume)\b`),
	}

	tradingAnalysisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwin\s*rate\b`),
		regexp.MustCompile(`(?i)\b(p&l|pnl|profit|profits|loss|losses|drawdown)\b`),
		regexp.MustCompile(`(?i)\bperformance\b`),
		regexp.MustCompile(`(?i)\bmy\s+(trades?|trading|positions?|stats|results|history)\b`),
		regexp.MustCompile(`(?i)\b(win|loss|losing|winning)\s+streak\b`),
		regexp.MustCompile(`(?i)\bhow\s+(am i|did i|have i)\s+(doing|done|traded?|performed)\b`),
		regexp.MustCompile(`(?i)\b(best|worst)\s+(symbol|ticker|trade|day)\b`),
	}
)

// DetectMessageType classifies a user message into one of the four intent
// buckets. First matching bucket wins; unmatched text is a question.
func DetectMessageType(text string) MessageType {
	if matchesAny(genericPatterns, text) {
		return MessageTypeGeneric
	}
	if matchesAny(marketDataPatterns, text) {
		return MessageTypeMarketData
	}
	if matchesAny(tradingAnalysisPatterns, text) {
		return MessageTypeTradingAnalysis
	}
	return MessageTypeQuestion
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
