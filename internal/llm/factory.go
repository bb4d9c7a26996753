package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry and logging middleware.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *zap.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewOfflineProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → retry → logging → base
	retryCfg := cfg.Retry
	if retryCfg.AttemptTimeout == 0 {
		retryCfg.AttemptTimeout = cfg.Timeout
	}
	logged := WithLogging(base, eventRepo, logger)
	retried := WithRetry(logged, retryCfg)

	return retried, nil
}

// NewProviderFromEnv resolves configuration from TUTORLY_* variables, or
// from the standard vendor API key variables when no provider is selected.
func NewProviderFromEnv(ctx context.Context, eventRepo store.EventRepo, logger *zap.Logger) (Provider, Config, error) {
	cfg := ConfigFromEnv()
	if os.Getenv("TUTORLY_LLM_PROVIDER") == "" {
		if discovered, ok := DiscoverConfig(); ok {
			cfg.Provider = discovered.Provider
			cfg.Anthropic.APIKey = firstNonEmpty(cfg.Anthropic.APIKey, discovered.Anthropic.APIKey)
			cfg.OpenAI.APIKey = firstNonEmpty(cfg.OpenAI.APIKey, discovered.OpenAI.APIKey)
			cfg.Gemini.APIKey = firstNonEmpty(cfg.Gemini.APIKey, discovered.Gemini.APIKey)
			cfg.OpenRouter.APIKey = firstNonEmpty(cfg.OpenRouter.APIKey, discovered.OpenRouter.APIKey)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	p, err := NewProvider(ctx, cfg, eventRepo, logger)
	return p, cfg, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
