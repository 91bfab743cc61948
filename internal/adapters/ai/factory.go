package ai

import (
	"context"

	"golang.org/x/time/rate"

	"tradejournal/internal/adapters/config"
)

// providerRPS caps outbound completion calls per process
const providerRPS = 5

// BuildCompleter returns the configured backend, or nil when no credentials
// are set. AI_PROVIDER wins when its key is present; otherwise whichever key
// exists is used.
func BuildCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch pickProvider(cfg) {
	case ProviderGemini:
		c, err := NewGeminiCompleter(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.Timeout, newLimiter())
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Timeout, newLimiter())
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

func pickProvider(cfg config.AIConfig) ProviderName {
	switch {
	case cfg.Provider == string(ProviderOpenAI) && cfg.OpenAIKey != "":
		return ProviderOpenAI
	case cfg.Provider == string(ProviderGemini) && cfg.GeminiKey != "":
		return ProviderGemini
	case cfg.GeminiKey != "":
		return ProviderGemini
	case cfg.OpenAIKey != "":
		return ProviderOpenAI
	default:
		return ""
	}
}

func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(providerRPS), providerRPS)
}
