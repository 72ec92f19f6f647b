package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration. It is decoded by viper from
// the "llm" section of the config file and DIAGNOSTICA_LLM_* variables.
type Config struct {
	// Provider selects the primary provider.
	// Values: "groq", "openai", "anthropic", "gemini", "mock", "" (disabled)
	Provider string `mapstructure:"provider"`

	// Fallback names a second provider tried when the primary fails after
	// its retries. Empty disables the fallback.
	Fallback string `mapstructure:"fallback"`

	Groq      GroqConfig      `mapstructure:"groq"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Retry     RetryConfig     `mapstructure:"retry"`

	// Timeout is the maximum duration for a single LLM request
	// (including retries). Default: 30s.
	Timeout time.Duration `mapstructure:"timeout"`
}

// GroqConfig holds Groq-specific configuration.
type GroqConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`    // Default: "llama-70b"
	BaseURL string `mapstructure:"base_url"` // Default: "https://api.groq.com/openai/v1"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`    // Default: "gpt-4o-mini"
	BaseURL string `mapstructure:"base_url"` // Optional. Override for compatible APIs.
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`    // Default: "claude-haiku"
	BaseURL string `mapstructure:"base_url"` // Optional. Proxy or gateway endpoint.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`    // Default: "gemini-flash"
	BaseURL string `mapstructure:"base_url"` // Optional. Proxy or gateway endpoint.
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// DefaultConfig returns a Config with sensible defaults. The provider is
// left empty so remediation uses templates until one is configured.
func DefaultConfig() Config {
	return Config{
		Groq: GroqConfig{
			Model:   "llama-70b",
			BaseURL: defaultGroqBaseURL,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Groq → OpenAI → Anthropic → Gemini) and fills in the first key found
// as the primary provider and the second as the fallback. Returns false
// if none is found.
func DiscoverConfig(cfg Config) (Config, bool) {
	found := 0
	set := func(name string) {
		switch found {
		case 0:
			cfg.Provider = name
		case 1:
			cfg.Fallback = name
		}
		found++
	}

	if k := os.Getenv("GROQ_API_KEY"); k != "" {
		cfg.Groq.APIKey = k
		set("groq")
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
		set("openai")
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
		set("anthropic")
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
		set("gemini")
	}

	return cfg, found > 0
}

// Enabled reports whether a provider is configured.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// Validate checks that the selected providers have their API keys set.
func (c Config) Validate() error {
	if err := c.validateProvider(c.Provider); err != nil {
		return err
	}
	if c.Fallback == "" {
		return nil
	}
	if c.Fallback == c.Provider {
		return fmt.Errorf("fallback provider %q is the same as the primary", c.Fallback)
	}
	return c.validateProvider(c.Fallback)
}

func (c Config) validateProvider(name string) error {
	switch name {
	case "groq":
		if c.Groq.APIKey == "" {
			return fmt.Errorf("DIAGNOSTICA_LLM_GROQ_API_KEY is required for the groq provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("DIAGNOSTICA_LLM_OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("DIAGNOSTICA_LLM_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("DIAGNOSTICA_LLM_GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock", "":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", name)
	}
	return nil
}
