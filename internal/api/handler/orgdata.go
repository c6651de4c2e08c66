package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/growthinsights/trialscope/internal/api/response"
	"github.com/growthinsights/trialscope/internal/orgdata"
	"github.com/growthinsights/trialscope/pkg/models"
)

// OrgDataProvider defines the interface the org-detail handler depends on.
type OrgDataProvider interface {
	Ping(ctx context.Context) error
	Stream(ctx context.Context, orgID int64) <-chan orgdata.SectionResult
	FetchAll(ctx context.Context, orgID int64) (orgdata.Bundle, error)
}

// NewOrgDataHandler returns the handler for GET /api/v1/org-data/{orgID}.
//
// The default response is an SSE stream delivering each section as its query
// settles, ending with a done event. Clients that prefer one document can
// send Accept: application/json and get the full bundle after all eleven
// sections finish.
func NewOrgDataHandler(svc OrgDataProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
		if err != nil || orgID <= 0 {
			response.Error(w, http.StatusBadRequest, "orgID must be a positive integer")
			return
		}

		// Establish the warehouse connection before any response byte is
		// written. A total outage is a request-level 500; only failures after
		// this point are reported per section.
		if err := svc.Ping(r.Context()); err != nil {
			response.ErrorWithDetails(w, http.StatusInternalServerError,
				"Failed to connect to warehouse", err.Error())
			return
		}

		if wantsJSON(r) {
			bundle, err := svc.FetchAll(r.Context(), orgID)
			if err != nil {
				response.ErrorWithDetails(w, http.StatusInternalServerError,
					"Failed to fetch organization data", err.Error())
				return
			}
			response.JSON(w, http.StatusOK, bundle)
			return
		}

		sse, err := response.NewSSE(w)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Streaming not supported")
			return
		}

		for res := range svc.Stream(r.Context(), orgID) {
			event := models.OrgDataEvent{Type: models.OrgDataEventData, Key: res.Key, Data: res.Rows}
			if res.Err != "" {
				event = models.OrgDataEvent{Type: models.OrgDataEventError, Key: res.Key, Error: res.Err}
			}
			if err := sse.Send(event); err != nil {
				// Client gone; section queries drain in the background.
				return
			}
		}

		if r.Context().Err() != nil {
			return
		}
		sse.Send(models.OrgDataEvent{Type: models.OrgDataEventDone})
	}
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") &&
		!strings.Contains(accept, "text/event-stream")
}
