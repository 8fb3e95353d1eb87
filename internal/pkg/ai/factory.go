package ai

import (
	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// NewProvider returns the provider selected by general.active_provider.
// The configuration is expected to be resolved, so aliases are already
// normalized.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.General.ActiveProvider {
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.Ollama), nil
	case config.ProviderGemini:
		return NewGeminiProvider(cfg.Gemini), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI), nil
	default:
		return nil, errors.NewConfigInvalidError("unknown provider: " + cfg.General.ActiveProvider)
	}
}
