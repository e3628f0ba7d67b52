package summarize

import (
	"fmt"
	"strings"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// ============================================================================
// Prompt Templates
// ============================================================================

const conversationSystemPrompt = `You summarize conversations between a trader and their trading assistant. Write in plain prose. No markdown, no bullet points, no headings. Capture what was discussed, any conclusions reached, and open questions. Refer to the trader as "the user".`

const tradingContextSystemPrompt = `You condense trading performance data into a short briefing for an assistant's context window. Write in plain prose. No markdown. State the figures plainly and note anything unusual. Do not give advice.`

const dailyRecapSystemPrompt = `You write end-of-day recaps of a trader's conversations with their assistant. Write in plain prose addressed to the trader. No markdown. Mention what was reviewed and anything the trader planned to follow up on.`

// promptFor renders the system and user prompts for a template kind. The
// conversation template is the fallback for unknown kinds.
func promptFor(template TemplateKind, msgs []llm.Message, maxLength int) (system, prompt string) {
	switch template {
	case TemplateDailyRecap:
		return dailyRecapSystemPrompt, buildDailyRecapPrompt(msgs, maxLength)
	default:
		return conversationSystemPrompt, buildConversationPrompt(msgs, maxLength)
	}
}

func buildConversationPrompt(msgs []llm.Message, maxLength int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this conversation in at most %d characters.\n\n", maxLength)
	writeTranscript(&b, msgs)
	return b.String()
}

func buildDailyRecapPrompt(msgs []llm.Message, maxLength int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a recap of today's conversation in at most %d characters.\n\n", maxLength)
	writeTranscript(&b, msgs)
	return b.String()
}

func buildTradingContextPrompt(snap *models.TradingSnapshot, maxLength int) (system, prompt string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Condense this trading snapshot into at most %d characters.\n\n", maxLength)
	b.WriteString(BuildStructuredSummary(snap))
	b.WriteString("\n")
	if snap != nil && snap.OpenPositions > 0 {
		fmt.Fprintf(&b, "Open positions: %d.\n", snap.OpenPositions)
	}
	if snap != nil && snap.PerformanceNote != "" {
		fmt.Fprintf(&b, "Note: %s\n", snap.PerformanceNote)
	}
	return tradingContextSystemPrompt, b.String()
}

// writeTranscript renders messages as "role: content" lines. Tool traffic is
// noted but not reproduced; raw payloads add tokens without adding meaning.
func writeTranscript(b *strings.Builder, msgs []llm.Message) {
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleTool:
			b.WriteString("tool: [result omitted]\n")
		default:
			content := strings.TrimSpace(msg.Content)
			if content == "" && len(msg.ToolCalls) > 0 {
				content = "[requested data lookup]"
			}
			if content == "" {
				continue
			}
			fmt.Fprintf(b, "%s: %s\n", msg.Role, content)
		}
	}
}
