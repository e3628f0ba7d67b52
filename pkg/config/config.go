package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// Config holds all configuration for the conversation engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Summarizer settings for the conversation summarizer.
	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Strategy thresholds for the context strategy selector.
	Strategy StrategyConfig `yaml:"strategy"`

	// Registry settings for the model registry.
	Registry RegistryConfig `yaml:"registry"`

	// Prompts settings for suggested-prompt generation.
	Prompts PromptsConfig `yaml:"prompts"`
}

// SummarizerConfig holds conversation summarizer settings.
type SummarizerConfig struct {
	// Model is the completion model used for summaries. When an API key is
	// set, the model must resolve in the registry or Validate fails.
	Model string `yaml:"model" env:"SUMMARIZER_MODEL" env-default:"gpt-4o-mini"`

	// APIKey enables the model-backed summarizer path.
	// Empty means extractive-only mode.
	APIKey string `yaml:"-" env:"SUMMARIZER_API_KEY"` // Secret - not in YAML

	// BaseURL is an optional OpenAI-compatible endpoint override.
	BaseURL string `yaml:"base_url" env:"SUMMARIZER_BASE_URL" env-default:""`

	// MaxSummaryLength caps generated summaries, in characters.
	MaxSummaryLength int `yaml:"max_summary_length" env:"SUMMARIZER_MAX_LENGTH" env-default:"500"`

	// TimeoutSeconds bounds one model-backed summarization attempt chain.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"SUMMARIZER_TIMEOUT_SECONDS" env-default:"30"`

	// MinMessages is the conversation length at which summarization kicks in.
	MinMessages int `yaml:"min_messages" env:"SUMMARIZER_MIN_MESSAGES" env-default:"10"`

	// KeepRecent is how many trailing messages stay verbatim when older
	// turns are summarized away.
	KeepRecent int `yaml:"keep_recent" env:"SUMMARIZER_KEEP_RECENT" env-default:"6"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c SummarizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ModelConfigured returns true if the model-backed summarizer path is enabled.
func (c SummarizerConfig) ModelConfigured() bool {
	return c.APIKey != ""
}

// ResolvedBaseURL returns BaseURL with a localhost host rewritten for Docker.
// Summarizer endpoints often run on the host machine (local OpenAI-compatible
// servers); inside a container, localhost would point at the container itself.
func (c SummarizerConfig) ResolvedBaseURL() string {
	if c.BaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return c.BaseURL
	}
	host := ResolveHostForDocker(u.Hostname())
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return u.String()
}

// ThresholdsConfig is one set of strategy thresholds, used both for the base
// values and for per-provider overrides.
type ThresholdsConfig struct {
	SummaryDepth      int `yaml:"summary_depth"`
	MinimalDepth      int `yaml:"minimal_depth"`
	ContextTokenLimit int `yaml:"context_token_limit"`
}

// StrategyConfig holds context strategy selector thresholds.
type StrategyConfig struct {
	// SummaryDepth is the conversation depth at which older turns get
	// summarized instead of replayed.
	SummaryDepth int `yaml:"summary_depth" env:"STRATEGY_SUMMARY_DEPTH" env-default:"12"`

	// MinimalDepth is the depth at which trading context drops to one line.
	// Must exceed SummaryDepth.
	MinimalDepth int `yaml:"minimal_depth" env:"STRATEGY_MINIMAL_DEPTH" env-default:"20"`

	// ContextTokenLimit caps the estimated size of the assembled context.
	ContextTokenLimit int `yaml:"context_token_limit" env:"STRATEGY_CONTEXT_TOKEN_LIMIT" env-default:"6000"`

	// ProviderOverrides replaces the base thresholds for specific providers
	// (YAML only). When absent entirely, anthropic gets a generous overlay.
	ProviderOverrides map[string]ThresholdsConfig `yaml:"provider_overrides"`
}

// RegistryConfig holds model registry settings.
type RegistryConfig struct {
	// CatalogFile optionally points at a YAML overlay that extends or
	// overrides the built-in model catalog.
	CatalogFile string `yaml:"catalog_file" env:"REGISTRY_CATALOG_FILE" env-default:""`
}

// PromptsConfig holds suggested-prompt generation settings.
type PromptsConfig struct {
	// SuggestionCount is how many suggestions one request returns.
	SuggestionCount int `yaml:"suggestion_count" env:"PROMPTS_SUGGESTION_COUNT" env-default:"3"`
}

// Load reads configuration from config.yaml in the working directory with
// environment variable overrides. A missing file is not an error; settings
// then come from environment variables and defaults alone.
func Load() (*Config, error) {
	if _, err := os.Stat("config.yaml"); err == nil {
		return LoadFrom("config.yaml")
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from an explicit YAML file with environment
// variable overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values the cleanenv tags cannot express.
func (c *Config) applyDefaults() {
	if c.Strategy.ProviderOverrides == nil {
		c.Strategy.ProviderOverrides = map[string]ThresholdsConfig{
			string(registry.ProviderAnthropic): {
				SummaryDepth:      20,
				MinimalDepth:      28,
				ContextTokenLimit: 8000,
			},
		}
	}
}

// Validate checks numeric sanity and, when the model-backed summarizer is
// enabled, that its model resolves in the configured registry.
func (c *Config) Validate() error {
	for _, check := range []struct {
		name  string
		value int
	}{
		{"summarizer.max_summary_length", c.Summarizer.MaxSummaryLength},
		{"summarizer.timeout_seconds", c.Summarizer.TimeoutSeconds},
		{"summarizer.min_messages", c.Summarizer.MinMessages},
		{"summarizer.keep_recent", c.Summarizer.KeepRecent},
		{"prompts.suggestion_count", c.Prompts.SuggestionCount},
	} {
		if check.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d",
				apperrors.ErrInvalidConfig, check.name, check.value)
		}
	}

	if err := c.Strategy.validate(); err != nil {
		return err
	}

	if c.Summarizer.ModelConfigured() {
		reg, err := c.BuildRegistry(nil)
		if err != nil {
			return err
		}
		if _, err := reg.Get(c.Summarizer.Model); err != nil {
			return fmt.Errorf("summarizer.model: %w", err)
		}
	}
	return nil
}

func (c StrategyConfig) validate() error {
	if err := validateThresholds("strategy", ThresholdsConfig{
		SummaryDepth:      c.SummaryDepth,
		MinimalDepth:      c.MinimalDepth,
		ContextTokenLimit: c.ContextTokenLimit,
	}); err != nil {
		return err
	}
	for provider, t := range c.ProviderOverrides {
		if !registry.IsValidProvider(registry.Provider(provider)) {
			return fmt.Errorf("%w: unknown provider %q in strategy.provider_overrides",
				apperrors.ErrInvalidConfig, provider)
		}
		if err := validateThresholds("strategy.provider_overrides."+provider, t); err != nil {
			return err
		}
	}
	return nil
}

func validateThresholds(prefix string, t ThresholdsConfig) error {
	if t.SummaryDepth <= 0 || t.MinimalDepth <= 0 || t.ContextTokenLimit <= 0 {
		return fmt.Errorf("%w: %s values must be positive (summary_depth=%d minimal_depth=%d context_token_limit=%d)",
			apperrors.ErrInvalidConfig, prefix, t.SummaryDepth, t.MinimalDepth, t.ContextTokenLimit)
	}
	if t.MinimalDepth <= t.SummaryDepth {
		return fmt.Errorf("%w: %s.minimal_depth %d must exceed %s.summary_depth %d",
			apperrors.ErrInvalidConfig, prefix, t.MinimalDepth, prefix, t.SummaryDepth)
	}
	return nil
}

// BuildRegistry constructs the model registry: the built-in catalog, with
// the configured catalog file merged in when one is set.
func (c *Config) BuildRegistry(logger *zap.Logger) (*registry.Registry, error) {
	if c.Registry.CatalogFile == "" {
		return registry.New(logger), nil
	}
	overlay, err := registry.LoadCatalogFile(c.Registry.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("registry catalog: %w", err)
	}
	return registry.NewWithOverlay(overlay, logger)
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the engine runs inside a Docker
// container, detected by the /.dockerenv file. Cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal when running
// inside Docker, so endpoints on the host machine stay reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
