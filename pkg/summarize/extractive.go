package summarize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// defaultSummaryLine is the floor for transcripts with no recognizable topics
// and no assistant text. An empty summary is a bug, not an edge case.
const defaultSummaryLine = "Discussion about trading activity and performance."

// topicTable maps discussion topics to the keywords that signal them. Scanned
// in order; the first three matches label the summary.
var topicTable = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"win rate", regexp.MustCompile(`(?i)\bwin\s*rate\b`)},
	{"profit and loss", regexp.MustCompile(`(?i)\b(p&l|pnl|profits?|loss(es)?|gains?)\b`)},
	{"entry and exit timing", regexp.MustCompile(`(?i)\b(entry|entries|exits?|timing|too (early|late))\b`)},
	{"specific symbols", regexp.MustCompile(`(?i)\b(symbols?|tickers?|stocks?|shares of)\b`)},
	{"trade patterns", regexp.MustCompile(`(?i)\b(patterns?|setups?|breakouts?|reversals?)\b`)},
	{"risk management", regexp.MustCompile(`(?i)\b(risk|stop.?loss(es)?|position siz\w*|drawdowns?)\b`)},
	{"trading strategy", regexp.MustCompile(`(?i)\b(strategy|strategies|approach|game.?plan)\b`)},
	{"improvement areas", regexp.MustCompile(`(?i)\b(improve\w*|better|mistakes?|lessons?|weakness\w*)\b`)},
}

// ExtractiveSummary produces a summary without any model call: up to three
// topic labels matched from the transcript, plus the opening sentence of the
// latest assistant reply. Deterministic and never empty.
func ExtractiveSummary(msgs []llm.Message, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultConfig().MaxSummaryLength
	}

	topics := matchTopics(msgs, 3)
	lastReply := firstSentence(latestAssistantText(msgs), 140)

	var b strings.Builder
	if len(topics) > 0 {
		b.WriteString("Discussed ")
		b.WriteString(joinNatural(topics))
		b.WriteString(".")
	}
	if lastReply != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Most recent point: ")
		b.WriteString(lastReply)
	}
	if b.Len() == 0 {
		b.WriteString(defaultSummaryLine)
	}
	return truncateAtWord(b.String(), maxLength)
}

func matchTopics(msgs []llm.Message, limit int) []string {
	var joined strings.Builder
	for _, msg := range msgs {
		if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
			continue
		}
		joined.WriteString(msg.Content)
		joined.WriteString("\n")
	}
	text := joined.String()

	var topics []string
	for _, entry := range topicTable {
		if entry.pattern.MatchString(text) {
			topics = append(topics, entry.label)
			if len(topics) == limit {
				break
			}
		}
	}
	return topics
}

func latestAssistantText(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleAssistant && strings.TrimSpace(msgs[i].Content) != "" {
			return msgs[i].Content
		}
	}
	return ""
}

// firstSentence cuts text at the first sentence boundary, bounded by maxRunes.
func firstSentence(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(text, sep); idx >= 0 {
			text = text[:idx+1]
			break
		}
	}
	return truncateAtWord(strings.TrimSpace(text), maxRunes)
}

// joinNatural renders a list as "a", "a and b", or "a, b, and c".
func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// ============================================================================
// Structured Trading Summary
// ============================================================================

// BuildStructuredSummary renders a snapshot as one deterministic paragraph:
// trade count, win rate, signed P&L, top symbols, dominant tag. Never empty.
func BuildStructuredSummary(snap *models.TradingSnapshot) string {
	if !snap.HasTrades() {
		return "No trading activity recorded yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d trades, %.1f%% win rate, %s net P&L.",
		snap.TotalTrades, snap.WinRate, signedAmount(snap.TotalPnL))

	if top := snap.TopSymbols(3); len(top) > 0 {
		b.WriteString(" Most traded:")
		for i, stat := range top {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s (%d)", stat.Symbol, stat.Trades)
		}
		b.WriteString(".")
	}

	if tag := snap.DominantTag(); tag != "" {
		fmt.Fprintf(&b, " Most frequent tag: %s.", tag)
	}
	return b.String()
}

func signedAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

// ============================================================================
// Windowing Predicates
// ============================================================================

// NeedsSummarization reports whether a transcript is long enough to compress.
// The age threshold is accepted for call-site compatibility; age-based
// triggering is an extension point and does not influence the result yet.
func NeedsSummarization(msgs []llm.Message, minMessages int, ageThreshold time.Duration) bool {
	if minMessages <= 0 {
		minMessages = DefaultConfig().MinMessages
	}
	return len(msgs) >= minMessages
}

// SplitMessagesForSummarization divides a transcript into the prefix to
// summarize and the tail to keep verbatim. The split backs up so the tail
// never opens with a tool result, which must stay with its assistant turn.
// Always: len(older)+len(recent) == len(msgs), order preserved.
func SplitMessagesForSummarization(msgs []llm.Message, keepRecent int) (older, recent []llm.Message) {
	if keepRecent <= 0 {
		keepRecent = DefaultConfig().KeepRecent
	}
	if len(msgs) <= keepRecent {
		return nil, msgs
	}

	split := len(msgs) - keepRecent
	for split > 0 && msgs[split].Role == llm.RoleTool {
		split--
	}
	return msgs[:split], msgs[split:]
}

// ============================================================================
// Completion Cleanup
// ============================================================================

var thinkTagPattern = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// cleanCompletion strips reasoning tags and code fences some models wrap
// around their output.
func cleanCompletion(text string) string {
	text = thinkTagPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// truncateAtWord caps text at maxRunes, cutting on a word boundary and
// closing with an ellipsis. The result never exceeds maxRunes runes.
func truncateAtWord(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 1 {
		return string(runes[:maxRunes])
	}

	cut := runes[:maxRunes-1]
	if idx := lastSpaceIndex(cut); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(string(cut), " ,;:.") + "…"
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
