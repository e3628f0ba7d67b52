// Package strategy decides which slice of trading context accompanies a
// conversation turn. Selection is a pure function of the turn's inputs; the
// selector holds only thresholds and a registry handle.
package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/models"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// ============================================================================
// Strategies
// ============================================================================

// Strategy names one of the four context inclusion levels.
type Strategy string

const (
	StrategyFull    Strategy = "FULL"
	StrategySummary Strategy = "SUMMARY"
	StrategyMinimal Strategy = "MINIMAL"
	StrategyNone    Strategy = "NONE"
)

// Richness orders strategies by how much context they carry (NONE=0, FULL=3).
func (s Strategy) Richness() int {
	switch s {
	case StrategyFull:
		return 3
	case StrategySummary:
		return 2
	case StrategyMinimal:
		return 1
	default:
		return 0
	}
}

// ============================================================================
// Thresholds
// ============================================================================

// Thresholds are the depth and token limits one provider class works under.
type Thresholds struct {
	// SummaryDepth is the conversation depth at which older turns get
	// summarized instead of replayed.
	SummaryDepth int
	// MinimalDepth is the depth at which trading context drops to a single
	// line. Must exceed SummaryDepth.
	MinimalDepth int
	// ContextTokenLimit caps the estimated size of the assembled context.
	ContextTokenLimit int
}

// DefaultThresholds returns the base limits tuned for standard-cost models.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SummaryDepth:      12,
		MinimalDepth:      20,
		ContextTokenLimit: 6000,
	}
}

func (t Thresholds) validate() error {
	if t.SummaryDepth <= 0 || t.MinimalDepth <= 0 || t.ContextTokenLimit <= 0 {
		return fmt.Errorf("%w: thresholds must be positive (summary=%d minimal=%d tokens=%d)",
			apperrors.ErrInvalidConfig, t.SummaryDepth, t.MinimalDepth, t.ContextTokenLimit)
	}
	if t.MinimalDepth <= t.SummaryDepth {
		return fmt.Errorf("%w: minimal depth %d must exceed summary depth %d",
			apperrors.ErrInvalidConfig, t.MinimalDepth, t.SummaryDepth)
	}
	return nil
}

// Config holds the selector's thresholds and per-provider overrides.
type Config struct {
	Base              Thresholds
	ProviderOverrides map[registry.Provider]Thresholds
}

// DefaultConfig gives economical providers more generous limits: their models
// can carry deeper transcripts before context degrades, so the cost control
// baked into the base numbers would only starve them.
func DefaultConfig() Config {
	return Config{
		Base: DefaultThresholds(),
		ProviderOverrides: map[registry.Provider]Thresholds{
			registry.ProviderAnthropic: {
				SummaryDepth:      20,
				MinimalDepth:      28,
				ContextTokenLimit: 8000,
			},
		},
	}
}

// ============================================================================
// Inputs and Decision
// ============================================================================

// Inputs are the facts one turn supplies to the selector.
type Inputs struct {
	// Depth is the number of messages already in the conversation.
	Depth int
	// HasTradeData reports whether a trading snapshot is available.
	HasTradeData bool
	// Tier is the trader's subscription level.
	Tier models.Tier
	// Intent is the detected type of the incoming user message.
	Intent MessageType
	// EstimatedTokens approximates the assembled context size.
	EstimatedTokens int
}

// Decision is the selector's output for one turn. Reason names the decisive
// rule and its numbers; Factors lists every input that participated.
type Decision struct {
	Strategy        Strategy `json:"strategy"`
	Reason          string   `json:"reason"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ============================================================================
// Selector
// ============================================================================

// Selector chooses a context strategy per turn. Safe for concurrent use; it
// holds no mutable state.
type Selector struct {
	registry  *registry.Registry
	base      Thresholds
	overrides map[registry.Provider]Thresholds
	logger    *zap.Logger
}

// NewSelector validates the configured thresholds and builds a selector.
func NewSelector(reg *registry.Registry, cfg Config, logger *zap.Logger) (*Selector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Base.validate(); err != nil {
		return nil, fmt.Errorf("base thresholds: %w", err)
	}
	for provider, t := range cfg.ProviderOverrides {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("thresholds for provider %q: %w", provider, err)
		}
	}
	return &Selector{
		registry:  reg,
		base:      cfg.Base,
		overrides: cfg.ProviderOverrides,
		logger:    logger.Named("strategy"),
	}, nil
}

// ThresholdsFor resolves the limits that apply to a model: its provider's
// override when one is configured, the base thresholds otherwise.
func (s *Selector) ThresholdsFor(modelID string) (Thresholds, error) {
	desc, err := s.registry.Get(modelID)
	if err != nil {
		return Thresholds{}, err
	}
	if t, ok := s.overrides[desc.Provider]; ok {
		return t, nil
	}
	return s.base, nil
}

// Select applies the precedence rules to one turn's inputs. First match wins.
func (s *Selector) Select(in Inputs, modelID string) (Decision, error) {
	th, err := s.ThresholdsFor(modelID)
	if err != nil {
		return Decision{}, err
	}

	decision := s.decide(in, th)
	decision.Factors = []string{
		fmt.Sprintf("depth=%d", in.Depth),
		fmt.Sprintf("has_trade_data=%t", in.HasTradeData),
		fmt.Sprintf("tier=%s", in.Tier),
		fmt.Sprintf("intent=%s", in.Intent),
		fmt.Sprintf("estimated_tokens=%d", in.EstimatedTokens),
		fmt.Sprintf("summary_depth=%d", th.SummaryDepth),
		fmt.Sprintf("minimal_depth=%d", th.MinimalDepth),
		fmt.Sprintf("context_token_limit=%d", th.ContextTokenLimit),
	}

	s.logger.Debug("context strategy selected",
		zap.String("model", modelID),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("reason", decision.Reason))
	return decision, nil
}

func (s *Selector) decide(in Inputs, th Thresholds) Decision {
	// Missing data dominates everything else: there is nothing to include.
	if !in.HasTradeData {
		return Decision{
			Strategy: StrategyMinimal,
			Reason:   "no trade data available",
			Recommendations: []string{
				"import trades or connect a broker to enable trading context",
			},
		}
	}
	if in.Intent == MessageTypeGeneric {
		return Decision{
			Strategy: StrategyNone,
			Reason:   fmt.Sprintf("message intent %q needs no trading context", in.Intent),
		}
	}
	if in.EstimatedTokens > th.ContextTokenLimit {
		return Decision{
			Strategy: StrategySummary,
			Reason: fmt.Sprintf("estimated context %d tokens exceeds limit %d",
				in.EstimatedTokens, th.ContextTokenLimit),
			Recommendations: []string{
				"summarize older turns before sending",
				"trim the trading snapshot to top symbols",
			},
		}
	}
	if in.Depth >= th.MinimalDepth {
		return Decision{
			Strategy: StrategyMinimal,
			Reason: fmt.Sprintf("conversation depth %d at or beyond minimal threshold %d",
				in.Depth, th.MinimalDepth),
			Recommendations: []string{
				"suggest starting a fresh conversation",
			},
		}
	}
	if in.Depth >= th.SummaryDepth {
		return Decision{
			Strategy: StrategySummary,
			Reason: fmt.Sprintf("conversation depth %d at or beyond summary threshold %d",
				in.Depth, th.SummaryDepth),
			Recommendations: []string{
				"summarize older turns before sending",
			},
		}
	}
	if in.Tier == models.TierPremium {
		return Decision{
			Strategy: StrategyFull,
			Reason:   "premium tier carries full context",
		}
	}
	return Decision{
		Strategy: StrategyFull,
		Reason:   "default full context",
	}
}
