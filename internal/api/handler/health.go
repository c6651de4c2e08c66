package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/growthinsights/trialscope/internal/api/response"
	"github.com/growthinsights/trialscope/internal/cache"
)

// Pinger verifies warehouse connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /api/v1/health. It reports
// per-dependency status without failing the endpoint: the dashboard stays up
// even when the warehouse is unreachable, and the statuses tell the operator
// which side is broken.
func NewHealthHandler(wh Pinger, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		warehouseStatus := "ok"
		if err := wh.Ping(ctx); err != nil {
			warehouseStatus = "error"
		}

		cacheStatus := "disabled"
		if c != nil && c.Enabled() {
			cacheStatus = "ok"
			if err := c.Ping(ctx); err != nil {
				cacheStatus = "error"
			}
		}

		response.JSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"warehouse": warehouseStatus,
			"cache":     cacheStatus,
		})
	}
}
