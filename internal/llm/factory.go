package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pharmcheck/pharmcheck/internal/store"
)

// NewProvider builds the configured provider wrapped as
// caller → retry → recording → base. A nil repo skips recording.
func NewProvider(ctx context.Context, cfg Config, repo store.EventRepo, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s provider: %w", cfg.Provider, err)
	}

	if repo != nil {
		base = WithRecording(base, repo, logger)
	}
	return WithRetry(base, cfg.Retry, logger), nil
}
