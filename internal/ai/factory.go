// Package ai selects and constructs the LLM provider used for meta-summaries.
package ai

import (
	"fmt"

	"github.com/growthinsights/trialscope/internal/ai/anthropic"
	"github.com/growthinsights/trialscope/internal/ai/mock"
	"github.com/growthinsights/trialscope/internal/ai/openai"
	"github.com/growthinsights/trialscope/internal/config"
	"github.com/growthinsights/trialscope/pkg/models"
)

// NewProvider constructs the configured AI provider. Called once at server
// startup; a nil provider (no error) means the feature is disabled.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of anthropic, openai, mock", cfg.Provider)
	}
}
