package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthinsights/trialscope/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(config.AIConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNewProvider_Anthropic(t *testing.T) {
	p, err := NewProvider(config.AIConfig{
		Provider:  "anthropic",
		Anthropic: config.AnthropicConfig{APIKey: "sk-test", Model: "claude-sonnet-4-5-20250929"},
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.Model())
}

func TestNewProvider_OpenAI(t *testing.T) {
	p, err := NewProvider(config.AIConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o"},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o", p.Model())
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(config.AIConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(config.AIConfig{Provider: "bard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
}
