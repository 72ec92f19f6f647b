package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/store"
)

// NewProvider creates the process-wide Provider from configuration. Each
// configured provider is wrapped caller → retry → logging → base; when a
// fallback is configured the two chains are joined with WithFallback.
// It returns (nil, nil) when no provider is configured.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *zap.Logger) (Provider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	primary, err := newChain(ctx, cfg, cfg.Provider, eventRepo, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" {
		return primary, nil
	}

	secondary, err := newChain(ctx, cfg, cfg.Fallback, eventRepo, logger)
	if err != nil {
		return nil, err
	}
	return WithFallback(primary, secondary, logger), nil
}

func newChain(ctx context.Context, cfg Config, name string, eventRepo store.EventRepo, logger *zap.Logger) (Provider, error) {
	var base Provider
	var err error

	switch name {
	case "groq":
		base, err = NewGroqProvider(cfg.Groq)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", name, err)
	}

	logged := WithLogging(base, name, eventRepo, logger)
	return WithRetry(logged, cfg.Retry, logger), nil
}
