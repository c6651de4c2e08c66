package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/growthinsights/trialscope/internal/ai/mock"
	"github.com/growthinsights/trialscope/internal/metasummary"
	"github.com/growthinsights/trialscope/pkg/models"
	"github.com/growthinsights/trialscope/pkg/sqlfilter"
)

// summarizerFromSource builds a real metasummary.Service over a canned batch,
// so handler tests exercise the genuine Run/Stream path.
type cannedSource struct {
	trials []models.TrialAnalysis

	gotFilter sqlfilter.TrialFilter
}

func (c *cannedSource) Recent(_ context.Context, filter sqlfilter.TrialFilter, _ int) ([]models.TrialAnalysis, error) {
	c.gotFilter = filter
	return c.trials, nil
}

func analysisOn(date string) models.TrialAnalysis {
	d, _ := time.Parse("2006-01-02", date)
	return models.TrialAnalysis{OrgID: 7, AnalysisDate: d, TrialSummary: "steady adoption"}
}

func TestMetaSummaryHandler_StreamsMetadataContentDone(t *testing.T) {
	src := &cannedSource{trials: []models.TrialAnalysis{analysisOn("2025-06-01")}}
	provider := &aimock.Provider{Fragments: []string{"## Common Patterns\n", "Dashboards land first."}}
	svc := metasummary.NewService(src, provider, 1024, 0)
	h := NewMetaSummaryHandler(svc)

	body := strings.NewReader(`{"filters":{"orgId":7}}`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	require.NotNil(t, src.gotFilter.OrgID)
	assert.Equal(t, int64(7), *src.gotFilter.OrgID)

	frames := parseSSE(t, w.Body.String())
	require.Len(t, frames, 4)

	assert.Equal(t, "metadata", frames[0]["type"])
	assert.Equal(t, float64(1), frames[0]["trialCount"])
	assert.Equal(t, "Jun 1, 2025", frames[0]["dateRange"])

	assert.Equal(t, "content", frames[1]["type"])
	assert.Equal(t, "## Common Patterns\n", frames[1]["text"])
	assert.Equal(t, "content", frames[2]["type"])

	assert.Equal(t, "done", frames[3]["type"])
}

func TestMetaSummaryHandler_NoTrialsIsPlain400(t *testing.T) {
	svc := metasummary.NewService(&cannedSource{}, &aimock.Provider{}, 1024, 0)
	h := NewMetaSummaryHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary",
		strings.NewReader(`{"filters":{"searchText":"nothing"}}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No trials found matching filters", body["error"])
}

func TestMetaSummaryHandler_DisabledIs503(t *testing.T) {
	svc := metasummary.NewService(&cannedSource{}, nil, 1024, 0)
	h := NewMetaSummaryHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetaSummaryHandler_BadBodyAndFilters(t *testing.T) {
	svc := metasummary.NewService(&cannedSource{}, &aimock.Provider{}, 1024, 0)
	h := NewMetaSummaryHandler(svc)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad date", `{"filters":{"dateFrom":"June 1"}}`},
		{"bad orgId", `{"filters":{"orgId":-2}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestMetaSummaryHandler_ProviderFailureIsInBandError(t *testing.T) {
	src := &cannedSource{trials: []models.TrialAnalysis{analysisOn("2025-06-01")}}
	provider := &aimock.Provider{Err: errors.New("model overloaded")}
	svc := metasummary.NewService(src, provider, 1024, 0)
	h := NewMetaSummaryHandler(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", strings.NewReader(`{}`)))

	// Stream opened, so the failure arrives as an event, not a status code.
	require.Equal(t, http.StatusOK, w.Code)
	frames := parseSSE(t, w.Body.String())
	last := frames[len(frames)-1]
	assert.Equal(t, "error", last["type"])
	assert.Contains(t, last["error"], "model overloaded")
}

func TestMetaSummaryStatusHandler(t *testing.T) {
	enabled := metasummary.NewService(&cannedSource{}, &aimock.Provider{}, 1024, 0)
	disabled := metasummary.NewService(&cannedSource{}, nil, 1024, 0)

	w := httptest.NewRecorder()
	NewMetaSummaryStatusHandler(enabled).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/meta-summary/status", nil))
	assert.JSONEq(t, `{"enabled":true}`, w.Body.String())

	w = httptest.NewRecorder()
	NewMetaSummaryStatusHandler(disabled).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/meta-summary/status", nil))
	assert.JSONEq(t, `{"enabled":false}`, w.Body.String())
}
