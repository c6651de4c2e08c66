// Package openai implements models.AIProvider on the OpenAI chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/growthinsights/trialscope/internal/config"
	"github.com/growthinsights/trialscope/pkg/models"
)

// Provider streams OpenAI chat completions.
type Provider struct {
	client *openaisdk.Client
	model  string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		client: openaisdk.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Model() string { return p.model }

// StreamCompletion forwards every content delta to onText in arrival order.
// An error returned by onText abandons the stream.
func (p *Provider) StreamCompletion(ctx context.Context, req models.CompletionRequest, onText func(string) error) error {
	stream, err := p.client.CreateChatCompletionStream(ctx, openaisdk.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens,
		Messages: []openaisdk.ChatCompletionMessage{
			{Role: openaisdk.ChatMessageRoleUser, Content: req.Prompt},
		},
		Stream: true,
	})
	if err != nil {
		return p.mapError(ctx, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return p.mapError(ctx, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onText(delta); err != nil {
				return err
			}
		}
	}
}

func (p *Provider) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	var apiErr *openaisdk.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: status %d: %w", apiErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

var _ models.AIProvider = (*Provider)(nil)
