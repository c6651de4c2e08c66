// Package anthropic implements models.AIProvider on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/liushuangls/go-anthropic/v2"

	"github.com/growthinsights/trialscope/internal/config"
	"github.com/growthinsights/trialscope/pkg/models"
)

// Provider streams Anthropic message completions.
type Provider struct {
	client *anthropicsdk.Client
	model  string
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		client: anthropicsdk.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Model() string { return p.model }

// StreamCompletion forwards every text delta to onText in arrival order.
// An error returned by onText cancels the stream.
func (p *Provider) StreamCompletion(ctx context.Context, req models.CompletionRequest, onText func(string) error) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sinkErr error

	_, err := p.client.CreateMessagesStream(streamCtx, anthropicsdk.MessagesStreamRequest{
		MessagesRequest: anthropicsdk.MessagesRequest{
			Model:     anthropicsdk.Model(p.model),
			MaxTokens: req.MaxTokens,
			Messages: []anthropicsdk.Message{
				{Role: anthropicsdk.RoleUser, Content: []anthropicsdk.MessageContent{
					{Type: "text", Text: &req.Prompt},
				}},
			},
		},
		OnContentBlockDelta: func(data anthropicsdk.MessagesEventContentBlockDeltaData) {
			if sinkErr != nil || data.Delta.Text == nil || *data.Delta.Text == "" {
				return
			}
			if err := onText(*data.Delta.Text); err != nil {
				sinkErr = err
				cancel()
			}
		},
	})

	if sinkErr != nil {
		return sinkErr
	}
	if err != nil {
		return p.mapError(ctx, err)
	}
	return nil
}

func (p *Provider) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	var apiErr *anthropicsdk.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic: %s: %w", apiErr.Type, err)
	}
	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

var _ models.AIProvider = (*Provider)(nil)
