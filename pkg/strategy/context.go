package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/tradelens-ai/convo-engine/pkg/llm"
	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// EstimateContextTokens approximates how many tokens the snapshot plus
// transcript would occupy, as serialized JSON length over four. Advisory
// only; threshold comparisons treat it as an estimate, never an exact count.
func EstimateContextTokens(snapshot *models.TradingSnapshot, msgs []llm.Message) int {
	total := 0
	if snapshot != nil {
		total += serializedLen(snapshot)
	}
	for i := range msgs {
		total += serializedLen(msgs[i])
	}
	return total / 4
}

// serializedLen never fails: values JSON refuses to encode are measured by
// their fmt rendering instead.
func serializedLen(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return len(fmt.Sprintf("%+v", v))
	}
	return len(data)
}

// BuildContextForStrategy maps a chosen strategy to concrete truncation
// parameters. Pure; independently testable from selection. MINIMAL and NONE
// carry no trading data at all: MINIMAL keeps the last two exchanges and
// NONE returns a nil plan, leaving the turn with just the last exchange.
func BuildContextForStrategy(strategy Strategy) *models.ContextPlan {
	switch strategy {
	case StrategyFull:
		return &models.ContextPlan{
			Strategy:            string(strategy),
			IncludeFullSnapshot: true,
		}
	case StrategySummary:
		return &models.ContextPlan{
			Strategy:        string(strategy),
			TopSymbols:      3,
			RecentExchanges: 3,
			Summarize:       true,
		}
	case StrategyMinimal:
		return &models.ContextPlan{
			Strategy:        string(strategy),
			RecentExchanges: 2,
		}
	default:
		return nil
	}
}
