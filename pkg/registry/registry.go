// Package registry is the single authority for model metadata. Everything
// the engine knows about a model id (provider, tool wire format, context
// window, cost class) comes from here; no other package hardcodes such facts.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
)

// ============================================================================
// Enums
// ============================================================================

// Provider identifies which vendor hosts a model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ValidProviders contains all valid provider values.
var ValidProviders = []Provider{ProviderAnthropic, ProviderOpenAI}

// IsValidProvider checks if the given provider is valid.
func IsValidProvider(p Provider) bool {
	for _, v := range ValidProviders {
		if v == p {
			return true
		}
	}
	return false
}

// ToolFormat identifies which tool wire format a model's API expects.
// It is deliberately independent of Provider: gateways expose Anthropic
// models behind OpenAI-compatible APIs, and some models take no tools at all.
type ToolFormat string

const (
	FormatAnthropic ToolFormat = "anthropic"
	FormatOpenAI    ToolFormat = "openai"
	FormatNone      ToolFormat = "none"
)

// ValidToolFormats contains all valid tool format values.
var ValidToolFormats = []ToolFormat{FormatAnthropic, FormatOpenAI, FormatNone}

// IsValidToolFormat checks if the given format is valid.
func IsValidToolFormat(f ToolFormat) bool {
	for _, v := range ValidToolFormats {
		if v == f {
			return true
		}
	}
	return false
}

// CostClass is a coarse pricing bucket used by context-sizing heuristics.
type CostClass string

const (
	CostEconomy  CostClass = "economy"
	CostStandard CostClass = "standard"
	CostPremium  CostClass = "premium"
)

// ValidCostClasses contains all valid cost class values.
var ValidCostClasses = []CostClass{CostEconomy, CostStandard, CostPremium}

// IsValidCostClass checks if the given cost class is valid.
func IsValidCostClass(c CostClass) bool {
	for _, v := range ValidCostClasses {
		if v == c {
			return true
		}
	}
	return false
}

// ============================================================================
// Descriptor
// ============================================================================

// Descriptor holds the registry's metadata for one model id.
type Descriptor struct {
	ID                  string     `json:"id" yaml:"id"`
	Provider            Provider   `json:"provider" yaml:"provider"`
	ToolFormat          ToolFormat `json:"tool_format" yaml:"tool_format"`
	ContextWindowTokens int        `json:"context_window_tokens" yaml:"context_window_tokens"`
	CostClass           CostClass  `json:"cost_class" yaml:"cost_class"`
}

// SupportsTools reports whether the model accepts tool definitions.
func (d Descriptor) SupportsTools() bool {
	return d.ToolFormat != FormatNone
}

func validateDescriptor(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("%w: descriptor with empty id", apperrors.ErrInvalidConfig)
	}
	if !IsValidProvider(d.Provider) {
		return fmt.Errorf("%w: model %q has unknown provider %q", apperrors.ErrInvalidConfig, d.ID, d.Provider)
	}
	if !IsValidToolFormat(d.ToolFormat) {
		return fmt.Errorf("%w: model %q has unknown tool format %q", apperrors.ErrInvalidConfig, d.ID, d.ToolFormat)
	}
	if d.ContextWindowTokens <= 0 {
		return fmt.Errorf("%w: model %q has non-positive context window", apperrors.ErrInvalidConfig, d.ID)
	}
	if !IsValidCostClass(d.CostClass) {
		return fmt.Errorf("%w: model %q has unknown cost class %q", apperrors.ErrInvalidConfig, d.ID, d.CostClass)
	}
	return nil
}

// ============================================================================
// Lookup Errors
// ============================================================================

// NotFoundError reports a lookup of a model id the registry does not know.
// Unknown models are never silently mapped to a default.
type NotFoundError struct {
	ModelID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found in registry", e.ModelID)
}

// Unwrap lets callers match with errors.Is(err, apperrors.ErrModelNotFound).
func (e *NotFoundError) Unwrap() error {
	return apperrors.ErrModelNotFound
}

// ============================================================================
// Registry
// ============================================================================

// Registry maps model ids to descriptors. It is immutable after construction
// and safe for concurrent readers.
type Registry struct {
	models map[string]Descriptor
}

// New returns a registry over the built-in catalog.
func New(logger *zap.Logger) *Registry {
	reg, err := NewFromCatalog(builtinCatalog(), logger)
	if err != nil {
		// The built-in catalog is validated by tests; reaching this is a bug.
		panic(fmt.Sprintf("built-in model catalog invalid: %v", err))
	}
	return reg
}

// NewFromCatalog returns a registry over an explicit descriptor list.
// Duplicate ids and invalid fields are construction errors.
func NewFromCatalog(descriptors []Descriptor, logger *zap.Logger) (*Registry, error) {
	models := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, exists := models[d.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate model id %q", apperrors.ErrInvalidConfig, d.ID)
		}
		models[d.ID] = d
	}

	if logger != nil {
		logger.Named("registry").Info("model catalog loaded", zap.Int("models", len(models)))
	}

	return &Registry{models: models}, nil
}

// NewWithOverlay returns a registry over the built-in catalog with overlay
// entries merged in: a matching id replaces the built-in descriptor, a new
// id extends the catalog.
func NewWithOverlay(overlay []Descriptor, logger *zap.Logger) (*Registry, error) {
	merged := builtinCatalog()
	index := make(map[string]int, len(merged))
	for i, d := range merged {
		index[d.ID] = i
	}

	for _, d := range overlay {
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if i, ok := index[d.ID]; ok {
			merged[i] = d
			continue
		}
		index[d.ID] = len(merged)
		merged = append(merged, d)
	}

	return NewFromCatalog(merged, logger)
}

// Get resolves a model id to its descriptor. A "vendor/name" id falls back
// to its bare suffix before failing, so gateway-prefixed ids resolve too.
func (r *Registry) Get(modelID string) (Descriptor, error) {
	if d, ok := r.models[modelID]; ok {
		return d, nil
	}
	if i := strings.LastIndex(modelID, "/"); i >= 0 {
		if d, ok := r.models[modelID[i+1:]]; ok {
			return d, nil
		}
	}
	return Descriptor{}, &NotFoundError{ModelID: modelID}
}

// ToolFormatFor returns the tool wire format for a model id.
func (r *Registry) ToolFormatFor(modelID string) (ToolFormat, error) {
	d, err := r.Get(modelID)
	if err != nil {
		return "", err
	}
	return d.ToolFormat, nil
}

// ProviderFor returns the hosting provider for a model id.
func (r *Registry) ProviderFor(modelID string) (Provider, error) {
	d, err := r.Get(modelID)
	if err != nil {
		return "", err
	}
	return d.Provider, nil
}

// SupportsTools reports whether a model accepts tool definitions.
func (r *Registry) SupportsTools(modelID string) (bool, error) {
	d, err := r.Get(modelID)
	if err != nil {
		return false, err
	}
	return d.SupportsTools(), nil
}

// IDs returns all known model ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
