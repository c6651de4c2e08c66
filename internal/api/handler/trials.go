package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/growthinsights/trialscope/internal/api/response"
	"github.com/growthinsights/trialscope/internal/trials"
)

// TrialLister defines the interface the listing handler depends on.
type TrialLister interface {
	List(ctx context.Context, p trials.ListParams) (*trials.ListResult, error)
}

// NewTrialsHandler returns the handler for GET /api/v1/trials.
func NewTrialsHandler(svc TrialLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter, err := filterQuery(q)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		limit, err := intParam(q.Get("limit"), trials.DefaultLimit)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		offset, err := intParam(q.Get("offset"), 0)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "offset must be an integer")
			return
		}

		result, err := svc.List(r.Context(), trials.ListParams{
			Limit:  limit,
			Offset: offset,
			Filter: filter,
		})
		if err != nil {
			response.ErrorWithDetails(w, http.StatusInternalServerError,
				"Failed to fetch trial summaries", err.Error())
			return
		}

		response.JSON(w, http.StatusOK, result)
	}
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
