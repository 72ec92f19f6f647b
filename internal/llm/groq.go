package llm

import "fmt"

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// groqModels maps friendly names to Groq model IDs.
var groqModels = map[string]string{
	"llama-70b": "llama-3.3-70b-versatile",
	"llama-8b":  "llama-3.1-8b-instant",
}

// GroqProvider wraps OpenAIProvider with Groq-specific defaults.
// Groq exposes an OpenAI-compatible API, so the underlying SDK is reused.
type GroqProvider struct {
	*OpenAIProvider
}

// NewGroqProvider creates a provider targeting the Groq API.
func NewGroqProvider(cfg GroqConfig) (*GroqProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}

	inner := newOpenAIProviderRaw(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   resolveModel(cfg.Model, groqModels),
		BaseURL: baseURL,
	})
	// Groq supports JSON mode but not strict json_schema response formats.
	inner.jsonMode = true
	return &GroqProvider{OpenAIProvider: inner}, nil
}
