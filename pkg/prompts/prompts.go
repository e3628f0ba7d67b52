// Package prompts seeds conversations with personalized greetings and
// suggested follow-up questions derived from the trader's current state.
// Everything here is deterministic template selection; no model calls.
package prompts

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/models"
)

// defaultSuggestionCount is used when callers pass n <= 0.
const defaultSuggestionCount = 3

// repetitionPenalty is subtracted from a template's priority when its
// category was recently explored, so conversations don't circle one topic.
const repetitionPenalty = 40

// ============================================================================
// Context
// ============================================================================

// Context is the trader state the generator selects against, assembled per
// turn from the trading snapshot and conversation metadata. Zero values mean
// "unknown"; templates requiring a field are ineligible while it is zero.
type Context struct {
	TotalTrades               int
	WinRate                   float64 // 0..100
	TotalPnL                  decimal.Decimal
	BestSymbol                string
	WorstSymbol               string
	BestSymbolWinRate         float64 // 0..100
	LossStreak                int
	WinStreak                 int
	PrimarySymbols            []string
	DominantTags              []string
	DaysSinceLastTrade        int
	DaysSinceLastConversation int
	OpenPositions             int
	RecentTopics              []string
	Tier                      models.Tier
	FirstName                 string
}

// Category groups templates by topic for diversity selection and the
// anti-repetition penalty.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryRisk        Category = "risk"
	CategoryHabits      Category = "habits"
	CategorySymbols     Category = "symbols"
	CategoryTiming      Category = "timing"
	CategoryGeneral     Category = "general"
	CategoryStreaks     Category = "streaks"
	CategoryRecap       Category = "recap"
)

// Field names a Context field usable in template text and requirements.
type Field string

// Template is one candidate suggestion or greeting line. Text interpolates
// {field} placeholders; Requires lists every field the text uses plus any the
// predicate depends on. A template is only selectable when all required
// fields are non-zero and When (if set) passes.
type Template struct {
	ID       string
	Category Category
	Priority int
	Requires []Field
	When     func(*Context) bool
	Text     string
}

// Suggestion is a rendered follow-up question offered to the trader.
type Suggestion struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// ============================================================================
// Generator
// ============================================================================

// Generator selects and renders templates. Construct with NewGenerator; the
// zero value has no templates.
type Generator struct {
	templates []Template
	greetings []Template
	logger    *zap.Logger
}

// NewGenerator validates the built-in template tables and returns a
// generator. A template whose text references a field outside its Requires
// list, or an unknown field, is a construction error: catching the mismatch
// here is what makes interpolation failures impossible at selection time.
func NewGenerator(logger *zap.Logger) (*Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := validateTemplates(suggestionTemplates); err != nil {
		return nil, err
	}
	if err := validateTemplates(greetingTemplates); err != nil {
		return nil, err
	}

	greetings := make([]Template, len(greetingTemplates))
	copy(greetings, greetingTemplates)
	sort.Slice(greetings, func(i, j int) bool {
		if greetings[i].Priority != greetings[j].Priority {
			return greetings[i].Priority > greetings[j].Priority
		}
		return greetings[i].ID < greetings[j].ID
	})

	return &Generator{
		templates: suggestionTemplates,
		greetings: greetings,
		logger:    logger.Named("prompts"),
	}, nil
}

// ============================================================================
// Suggestions
// ============================================================================

// Suggestions returns up to n rendered suggestions, diversity-first: one per
// eligible category in descending score order before any category repeats.
// Deterministic for a given context. Never empty: the general category
// carries templates with no requirements.
func (g *Generator) Suggestions(pctx *Context, n int) []Suggestion {
	if pctx == nil {
		pctx = &Context{}
	}
	if n <= 0 {
		n = defaultSuggestionCount
	}

	type candidate struct {
		tpl   Template
		score int
	}

	byCategory := make(map[Category][]candidate)
	for _, tpl := range g.templates {
		if !eligible(tpl, pctx) {
			continue
		}
		byCategory[tpl.Category] = append(byCategory[tpl.Category], candidate{tpl, score(tpl, pctx)})
	}

	categories := make([]Category, 0, len(byCategory))
	for cat, cands := range byCategory {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].score != cands[j].score {
				return cands[i].score > cands[j].score
			}
			return cands[i].tpl.ID < cands[j].tpl.ID
		})
		byCategory[cat] = cands
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := byCategory[categories[i]][0], byCategory[categories[j]][0]
		if a.score != b.score {
			return a.score > b.score
		}
		return a.tpl.ID < b.tpl.ID
	})

	out := make([]Suggestion, 0, n)
	for round := 0; len(out) < n; round++ {
		advanced := false
		for _, cat := range categories {
			if len(out) == n {
				break
			}
			cands := byCategory[cat]
			if round >= len(cands) {
				continue
			}
			advanced = true

			c := cands[round]
			text, err := interpolate(c.tpl.Text, pctx)
			if err != nil {
				g.logger.Error("template interpolation failed",
					zap.String("template", c.tpl.ID),
					zap.Error(err))
				continue
			}
			out = append(out, Suggestion{ID: c.tpl.ID, Category: c.tpl.Category, Text: text})
		}
		if !advanced {
			break
		}
	}
	return out
}

// ============================================================================
// Greeting
// ============================================================================

// Greeting opens a session: a time-of-day salutation, the trader's name when
// known, and the highest-priority eligible greeting line.
func (g *Generator) Greeting(pctx *Context, now time.Time) string {
	if pctx == nil {
		pctx = &Context{}
	}

	var b strings.Builder
	b.WriteString(salutation(now.Hour()))
	if pctx.FirstName != "" {
		b.WriteString(", ")
		b.WriteString(pctx.FirstName)
	}
	b.WriteString(".")

	for _, tpl := range g.greetings {
		if !eligible(tpl, pctx) {
			continue
		}
		text, err := interpolate(tpl.Text, pctx)
		if err != nil {
			g.logger.Error("greeting interpolation failed",
				zap.String("template", tpl.ID),
				zap.Error(err))
			continue
		}
		b.WriteString(" ")
		b.WriteString(text)
		break
	}
	return b.String()
}

func salutation(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good morning"
	case hour >= 12 && hour < 17:
		return "Good afternoon"
	case hour >= 17 && hour < 22:
		return "Good evening"
	default:
		return "Hello"
	}
}

// ============================================================================
// Eligibility and Scoring
// ============================================================================

func eligible(tpl Template, pctx *Context) bool {
	for _, f := range tpl.Requires {
		spec, ok := contextFields[f]
		if !ok || spec.zero(pctx) {
			return false
		}
	}
	if tpl.When != nil && !tpl.When(pctx) {
		return false
	}
	return true
}

func score(tpl Template, pctx *Context) int {
	s := tpl.Priority
	for _, topic := range pctx.RecentTopics {
		if strings.EqualFold(topic, string(tpl.Category)) {
			s -= repetitionPenalty
			break
		}
	}
	return s
}
