package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
)

// builtinCatalog returns the models the engine ships with. Deployments
// extend or override it through a catalog file (see LoadCatalogFile).
func builtinCatalog() []Descriptor {
	return []Descriptor{
		// Anthropic
		{ID: "claude-opus-4-1", Provider: ProviderAnthropic, ToolFormat: FormatAnthropic, ContextWindowTokens: 200_000, CostClass: CostPremium},
		{ID: "claude-sonnet-4-5", Provider: ProviderAnthropic, ToolFormat: FormatAnthropic, ContextWindowTokens: 200_000, CostClass: CostStandard},
		{ID: "claude-haiku-4-5", Provider: ProviderAnthropic, ToolFormat: FormatAnthropic, ContextWindowTokens: 200_000, CostClass: CostEconomy},
		{ID: "claude-3-5-haiku-latest", Provider: ProviderAnthropic, ToolFormat: FormatAnthropic, ContextWindowTokens: 200_000, CostClass: CostEconomy},

		// OpenAI
		{ID: "gpt-5.1", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 400_000, CostClass: CostPremium},
		{ID: "gpt-5-mini", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 400_000, CostClass: CostEconomy},
		{ID: "gpt-4o", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 128_000, CostClass: CostStandard},
		{ID: "gpt-4o-mini", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 128_000, CostClass: CostEconomy},
		{ID: "gpt-4.1", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 1_000_000, CostClass: CostStandard},
		{ID: "gpt-4.1-mini", Provider: ProviderOpenAI, ToolFormat: FormatOpenAI, ContextWindowTokens: 1_000_000, CostClass: CostEconomy},

		// Legacy completion models: reachable for plain text, no tool support.
		{ID: "gpt-3.5-turbo-instruct", Provider: ProviderOpenAI, ToolFormat: FormatNone, ContextWindowTokens: 4_096, CostClass: CostEconomy},
	}
}

// LoadCatalogFile reads descriptor overlays from a YAML file. The file holds
// a top-level "models" list; each entry uses the Descriptor field names.
func LoadCatalogFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var doc struct {
		Models []Descriptor `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("%w: catalog file %s defines no models", apperrors.ErrInvalidConfig, path)
	}

	return doc.Models, nil
}
