package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/growthinsights/trialscope/internal/api/response"
	"github.com/growthinsights/trialscope/internal/metasummary"
	"github.com/growthinsights/trialscope/pkg/models"
	"github.com/growthinsights/trialscope/pkg/sqlfilter"
)

// MetaSummarizer defines the interface the meta-summary handlers depend on.
type MetaSummarizer interface {
	Enabled() bool
	Prepare(ctx context.Context, filter sqlfilter.TrialFilter) (*metasummary.Run, error)
}

// NewMetaSummaryHandler returns the handler for POST /api/v1/meta-summary.
//
// Everything that can fail before generation starts (bad filters, no matching
// trials, provider not configured) is a plain HTTP error. Once the SSE stream
// opens, failures are reported in-band as error events.
func NewMetaSummaryHandler(svc MetaSummarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filters filterBody `json:"filters"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
		}

		filter, err := req.Filters.toFilter()
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		run, err := svc.Prepare(r.Context(), filter)
		if err != nil {
			switch {
			case errors.Is(err, metasummary.ErrNoTrials):
				response.Error(w, http.StatusBadRequest, "No trials found matching filters")
			case errors.Is(err, metasummary.ErrDisabled):
				response.Error(w, http.StatusServiceUnavailable, "Meta-summary generation is not configured")
			default:
				response.ErrorWithDetails(w, http.StatusInternalServerError,
					"Failed to prepare meta-summary", err.Error())
			}
			return
		}

		sse, err := response.NewSSE(w)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Streaming not supported")
			return
		}

		run.Stream(r.Context(), func(e models.MetaSummaryEvent) error {
			return sse.Send(e)
		})
	}
}

// NewMetaSummaryStatusHandler returns the handler for
// GET /api/v1/meta-summary/status, which the UI uses to decide whether to
// show the generate button.
func NewMetaSummaryStatusHandler(svc MetaSummarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]bool{"enabled": svc.Enabled()})
	}
}
