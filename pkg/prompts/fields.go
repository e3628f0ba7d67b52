package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
)

// fieldSpec binds a Context field to its zero test and display formatter.
// Eligibility and interpolation both consult this table, so a template can
// never render a field that eligibility did not establish.
type fieldSpec struct {
	zero   func(*Context) bool
	format func(*Context) string
}

var contextFields = map[Field]fieldSpec{
	"total_trades": {
		zero:   func(c *Context) bool { return c.TotalTrades == 0 },
		format: func(c *Context) string { return formatCount(c.TotalTrades, "trade") },
	},
	"win_rate": {
		zero:   func(c *Context) bool { return c.WinRate == 0 },
		format: func(c *Context) string { return formatPercent(c.WinRate) },
	},
	"total_pnl": {
		zero:   func(c *Context) bool { return c.TotalPnL.IsZero() },
		format: func(c *Context) string { return formatCurrency(c.TotalPnL) },
	},
	"best_symbol": {
		zero:   func(c *Context) bool { return c.BestSymbol == "" },
		format: func(c *Context) string { return c.BestSymbol },
	},
	"worst_symbol": {
		zero:   func(c *Context) bool { return c.WorstSymbol == "" },
		format: func(c *Context) string { return c.WorstSymbol },
	},
	"best_symbol_win_rate": {
		zero:   func(c *Context) bool { return c.BestSymbolWinRate == 0 },
		format: func(c *Context) string { return formatPercent(c.BestSymbolWinRate) },
	},
	"loss_streak": {
		zero:   func(c *Context) bool { return c.LossStreak == 0 },
		format: func(c *Context) string { return formatCount(c.LossStreak, "loss") },
	},
	"win_streak": {
		zero:   func(c *Context) bool { return c.WinStreak == 0 },
		format: func(c *Context) string { return formatCount(c.WinStreak, "win") },
	},
	"primary_symbols": {
		zero:   func(c *Context) bool { return len(c.PrimarySymbols) == 0 },
		format: func(c *Context) string { return formatList(c.PrimarySymbols) },
	},
	"dominant_tags": {
		zero:   func(c *Context) bool { return len(c.DominantTags) == 0 },
		format: func(c *Context) string { return formatList(c.DominantTags) },
	},
	"days_since_last_trade": {
		zero:   func(c *Context) bool { return c.DaysSinceLastTrade == 0 },
		format: func(c *Context) string { return formatCount(c.DaysSinceLastTrade, "day") },
	},
	"days_since_last_conversation": {
		zero:   func(c *Context) bool { return c.DaysSinceLastConversation == 0 },
		format: func(c *Context) string { return formatCount(c.DaysSinceLastConversation, "day") },
	},
	"open_positions": {
		zero:   func(c *Context) bool { return c.OpenPositions == 0 },
		format: func(c *Context) string { return formatCount(c.OpenPositions, "position") },
	},
	"first_name": {
		zero:   func(c *Context) bool { return c.FirstName == "" },
		format: func(c *Context) string { return c.FirstName },
	},
}

// ============================================================================
// Interpolation
// ============================================================================

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// interpolate replaces {field} tokens with formatted values. A token naming
// an unknown field, or a field still at its zero value, is an error rather
// than an empty substitution.
func interpolate(text string, pctx *Context) (string, error) {
	var interpErr error
	out := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := Field(strings.Trim(token, "{}"))
		spec, ok := contextFields[name]
		if !ok {
			interpErr = fmt.Errorf("unknown placeholder %s: %w", token, apperrors.ErrTemplateField)
			return token
		}
		if spec.zero(pctx) {
			interpErr = fmt.Errorf("placeholder %s has no value: %w", token, apperrors.ErrTemplateField)
			return token
		}
		return spec.format(pctx)
	})
	if interpErr != nil {
		return "", interpErr
	}
	return out, nil
}

// validateTemplates checks every template's placeholders against its Requires
// list and the known-field table. Run at construction so a bad template is a
// startup failure, not a skipped suggestion in production.
func validateTemplates(templates []Template) error {
	for _, tpl := range templates {
		required := make(map[Field]bool, len(tpl.Requires))
		for _, f := range tpl.Requires {
			if _, ok := contextFields[f]; !ok {
				return fmt.Errorf("template %q requires unknown field %q: %w",
					tpl.ID, f, apperrors.ErrTemplateField)
			}
			required[f] = true
		}

		for _, match := range placeholderPattern.FindAllStringSubmatch(tpl.Text, -1) {
			name := Field(match[1])
			if _, ok := contextFields[name]; !ok {
				return fmt.Errorf("template %q interpolates unknown field %q: %w",
					tpl.ID, name, apperrors.ErrTemplateField)
			}
			if !required[name] {
				return fmt.Errorf("template %q interpolates %q outside its requires list: %w",
					tpl.ID, name, apperrors.ErrTemplateField)
			}
		}
	}
	return nil
}

// ============================================================================
// Formatters
// ============================================================================

var englishPrinter = message.NewPrinter(language.English)

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// formatCurrency renders an amount as an absolute grouped dollar figure with
// a gain/loss word carrying the sign: "a $12,345.67 loss".
func formatCurrency(d decimal.Decimal) string {
	word := "gain"
	if d.IsNegative() {
		word = "loss"
	}
	amount, _ := d.Abs().Float64()
	return englishPrinter.Sprintf("a $%.2f %s", amount, word)
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %s", n, inflection.Plural(noun))
}

// formatList joins items with commas, the last two with "and".
func formatList(items []string) string {
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

// KnownFields returns the interpolatable field names, sorted. Exposed for
// documentation and config tooling.
func KnownFields() []string {
	out := make([]string, 0, len(contextFields))
	for f := range contextFields {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}
