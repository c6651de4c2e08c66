// Package mock provides a deterministic AIProvider for tests and local
// development without API keys.
package mock

import (
	"context"

	"github.com/growthinsights/trialscope/pkg/models"
)

// Provider emits a fixed sequence of text fragments.
type Provider struct {
	// Fragments are streamed one onText call each. When empty, a small
	// default sequence is used.
	Fragments []string
	// Err, when set, is returned after all fragments are emitted.
	Err error
}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Model() string { return "mock-v1" }

func (p *Provider) StreamCompletion(ctx context.Context, _ models.CompletionRequest, onText func(string) error) error {
	fragments := p.Fragments
	if len(fragments) == 0 {
		fragments = []string{"## Analysis\n\n", "No live model is configured; ", "this is mock output."}
	}

	for _, f := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onText(f); err != nil {
			return err
		}
	}
	return p.Err
}

var _ models.AIProvider = (*Provider)(nil)
