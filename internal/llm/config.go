package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// defaultModels is the model used per provider when Config.Model is empty.
var defaultModels = map[string]string{
	ProviderAnthropic:  "claude-haiku",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGemini:     "gemini-flash",
	ProviderOpenRouter: "google/gemini-2.0-flash-exp",
}

// Config selects and configures one provider. An empty Provider disables
// the LLM features.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // OpenAI-compatible endpoints only

	Retry RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

// DefaultConfig returns a disabled Config with retry and timeout defaults.
func DefaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     8 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool { return c.Provider != "" }

// ModelOrDefault returns Model or the provider default.
func (c Config) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// ConfigFromEnv reads GEOQUIZ_LLM_PROVIDER, GEOQUIZ_LLM_API_KEY,
// GEOQUIZ_LLM_MODEL and GEOQUIZ_LLM_BASE_URL. When no provider is set it
// falls back to DiscoverConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = os.Getenv("GEOQUIZ_LLM_PROVIDER")
	cfg.APIKey = os.Getenv("GEOQUIZ_LLM_API_KEY")
	cfg.Model = os.Getenv("GEOQUIZ_LLM_MODEL")
	cfg.BaseURL = os.Getenv("GEOQUIZ_LLM_BASE_URL")

	if cfg.Provider == "" {
		if found, ok := DiscoverConfig(); ok {
			found.Model = cfg.Model
			found.BaseURL = cfg.BaseURL
			return found
		}
		return cfg
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(standardKeyVar(cfg.Provider))
	}
	return cfg
}

// discoveryOrder lists providers probed by DiscoverConfig.
var discoveryOrder = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter}

// DiscoverConfig picks the first provider whose conventional API key
// variable (GEMINI_API_KEY, OPENAI_API_KEY, ...) is set.
func DiscoverConfig() (Config, bool) {
	for _, p := range discoveryOrder {
		if key := os.Getenv(standardKeyVar(p)); key != "" {
			cfg := DefaultConfig()
			cfg.Provider = p
			cfg.APIKey = key
			return cfg, true
		}
	}
	return Config{}, false
}

func standardKeyVar(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	}
	return ""
}

// Validate checks that an enabled provider is known and has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("llm provider %q needs GEOQUIZ_LLM_API_KEY or %s", c.Provider, standardKeyVar(c.Provider))
		}
		return nil
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
}
