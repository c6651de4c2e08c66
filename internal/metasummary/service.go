// Package metasummary turns a filtered batch of trial analyses into one
// LLM-written executive summary, streamed fragment by fragment.
package metasummary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/growthinsights/trialscope/internal/trials"
	"github.com/growthinsights/trialscope/pkg/models"
	"github.com/growthinsights/trialscope/pkg/sqlfilter"
)

// MaxTrials caps how many analyses feed a single summary, keeping the prompt
// within a predictable token budget.
const MaxTrials = 50

var (
	// ErrNoTrials means the filters matched nothing; callers should reject the
	// request before any stream is opened.
	ErrNoTrials = errors.New("no trials found matching filters")
	// ErrDisabled means no AI provider is configured.
	ErrDisabled = errors.New("meta-summary generation is disabled")
)

// TrialSource supplies the analyses a summary is built from.
type TrialSource interface {
	Recent(ctx context.Context, filter sqlfilter.TrialFilter, limit int) ([]models.TrialAnalysis, error)
}

// Service prepares and runs meta-summary generations.
type Service struct {
	trials    TrialSource
	provider  models.AIProvider
	maxTokens int
	timeout   time.Duration
}

// NewService wires the generator. provider may be nil, in which case every
// Prepare call fails with ErrDisabled.
func NewService(source TrialSource, provider models.AIProvider, maxTokens int, timeout time.Duration) *Service {
	return &Service{trials: source, provider: provider, maxTokens: maxTokens, timeout: timeout}
}

// Enabled reports whether an AI provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// Run is a prepared generation: the trial batch is loaded and the prompt is
// built, but no model call has happened yet. Failures up to this point map to
// plain HTTP errors; only Stream produces in-band stream errors.
type Run struct {
	TrialCount int
	DateRange  string

	prompt    string
	provider  models.AIProvider
	maxTokens int
	timeout   time.Duration
}

// Prepare loads the filtered trial batch and builds the prompt. It returns
// ErrNoTrials when the filters match nothing and ErrDisabled when no provider
// is configured.
func (s *Service) Prepare(ctx context.Context, filter sqlfilter.TrialFilter) (*Run, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	batch, err := s.trials.Recent(ctx, filter, MaxTrials)
	if err != nil {
		return nil, fmt.Errorf("load trials for summary: %w", err)
	}
	if len(batch) == 0 {
		return nil, ErrNoTrials
	}

	dateRange := formatDateRange(batch)
	return &Run{
		TrialCount: len(batch),
		DateRange:  dateRange,
		prompt:     buildPrompt(batch, dateRange),
		provider:   s.provider,
		maxTokens:  s.maxTokens,
		timeout:    s.timeout,
	}, nil
}

// Stream executes the generation, delivering events to emit in strict order:
// one metadata event, then content fragments as the model produces them, then
// a terminal done or error event. An emit failure (client gone) aborts the
// model call. Stream never returns an error for model failures; those are
// reported in-band so a consumer that already received frames sees a clean
// terminal event.
func (r *Run) Stream(ctx context.Context, emit func(models.MetaSummaryEvent) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := emit(models.MetaSummaryEvent{
		Type:       models.MetaSummaryEventMetadata,
		TrialCount: r.TrialCount,
		DateRange:  r.DateRange,
	}); err != nil {
		return err
	}

	started := time.Now()
	err := r.provider.StreamCompletion(ctx, models.CompletionRequest{
		Prompt:    r.prompt,
		MaxTokens: r.maxTokens,
	}, func(text string) error {
		return emit(models.MetaSummaryEvent{Type: models.MetaSummaryEventContent, Text: text})
	})
	if err != nil {
		slog.Error("meta-summary generation failed",
			"provider", r.provider.Name(),
			"model", r.provider.Model(),
			"trial_count", r.TrialCount,
			"elapsed", time.Since(started),
			"error", err)
		return emit(models.MetaSummaryEvent{Type: models.MetaSummaryEventError, Error: err.Error()})
	}

	slog.Info("meta-summary generated",
		"provider", r.provider.Name(),
		"model", r.provider.Model(),
		"trial_count", r.TrialCount,
		"elapsed", time.Since(started))
	return emit(models.MetaSummaryEvent{Type: models.MetaSummaryEventDone})
}

var _ TrialSource = (*trials.Service)(nil)
