// Package api assembles the HTTP surface: middleware stack, versioned API
// routes, and the embedded dashboard UI.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/growthinsights/trialscope/internal/api/middleware"
	"github.com/growthinsights/trialscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler            http.HandlerFunc
	TrialsHandler            http.HandlerFunc
	OrgDataHandler           http.HandlerFunc
	MetaSummaryHandler       http.HandlerFunc
	MetaSummaryStatusHandler http.HandlerFunc

	// UI serves the embedded dashboard; nil leaves / unrouted.
	UI http.Handler
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/trials", orNotImplemented(deps.TrialsHandler))
	r.Get("/api/v1/org-data/{orgID}", orNotImplemented(deps.OrgDataHandler))
	r.Get("/api/v1/meta-summary/status", orNotImplemented(deps.MetaSummaryStatusHandler))

	// Generation is the only endpoint that spends model tokens, so it is the
	// only rate-limited one.
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}
		r.Post("/api/v1/meta-summary", orNotImplemented(deps.MetaSummaryHandler))
	})

	if deps.UI != nil {
		r.Handle("/*", deps.UI)
	}

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "Endpoint not yet implemented")
	}
}
