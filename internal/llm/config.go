package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	Provider string

	Anthropic  ProviderConfig
	OpenAI     ProviderConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig
	Retry      RetryConfig

	// Timeout bounds a whole call including retries.
	Timeout time.Duration
}

// ProviderConfig is the per-provider part of Config. BaseURL is honoured by
// the OpenAI-compatible providers only.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// envPrefix namespaces every variable read by ConfigFromEnv.
const envPrefix = "PHARMCHECK_"

// ConfigFromEnv builds a Config from PHARMCHECK_* variables over the
// defaults. The second result is false when no provider was selected.
func ConfigFromEnv() (Config, bool) {
	cfg := DefaultConfig()
	p := os.Getenv(envPrefix + "LLM_PROVIDER")

	for name, pc := range cfg.providers() {
		key := envPrefix + strings.ToUpper(name)
		if v := os.Getenv(key + "_API_KEY"); v != "" {
			pc.APIKey = v
		}
		if v := os.Getenv(key + "_MODEL"); v != "" {
			pc.Model = v
		}
		if v := os.Getenv(key + "_BASE_URL"); v != "" {
			pc.BaseURL = v
		}
	}

	if p == "" {
		return cfg, false
	}
	cfg.Provider = p
	return cfg, true
}

// DiscoverConfig probes the vendors' standard API key variables (Gemini,
// OpenAI, Anthropic, OpenRouter, in that order) and selects the first
// provider found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	for _, name := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter} {
		if k := os.Getenv(strings.ToUpper(name) + "_API_KEY"); k != "" {
			cfg.Provider = name
			cfg.providers()[name].APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Resolve returns the explicit PHARMCHECK_* configuration when a provider is
// named there, and otherwise falls back to DiscoverConfig.
func Resolve() (Config, bool) {
	if cfg, ok := ConfigFromEnv(); ok {
		return cfg, true
	}
	return DiscoverConfig()
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	pc, ok := c.providers()[c.Provider]
	if !ok {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if pc.APIKey == "" {
		return fmt.Errorf("%s%s_API_KEY is required for the %s provider", envPrefix, strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}

func (c *Config) providers() map[string]*ProviderConfig {
	return map[string]*ProviderConfig{
		ProviderAnthropic:  &c.Anthropic,
		ProviderOpenAI:     &c.OpenAI,
		ProviderGemini:     &c.Gemini,
		ProviderOpenRouter: &c.OpenRouter,
	}
}
