// Package handler contains the HTTP handlers behind the dashboard API.
package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/growthinsights/trialscope/pkg/sqlfilter"
)

const dateLayout = "2006-01-02"

// filterQuery parses the shared listing filters from query parameters.
// valueMoments may be repeated or comma-separated.
func filterQuery(q url.Values) (sqlfilter.TrialFilter, error) {
	var f sqlfilter.TrialFilter

	if raw := q.Get("orgId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("orgId must be a positive integer")
		}
		f.OrgID = &id
	}

	var err error
	if f.DateFrom, err = parseDate(q.Get("dateFrom"), "dateFrom"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(q.Get("dateTo"), "dateTo"); err != nil {
		return f, err
	}

	// Accept both valueMoments=a,b and the bracketed valueMoments[]=a form
	// some HTTP clients produce for array parameters.
	f.ValueMoments = splitMoments(append(q["valueMoments"], q["valueMoments[]"]...))
	f.Search = strings.TrimSpace(q.Get("search"))

	return f, nil
}

// filterBody is the filters object accepted by the meta-summary endpoint.
type filterBody struct {
	OrgID        *int64   `json:"orgId"`
	DateFrom     string   `json:"dateFrom"`
	DateTo       string   `json:"dateTo"`
	ValueMoments []string `json:"valueMoments"`
	SearchText   string   `json:"searchText"`
}

func (b filterBody) toFilter() (sqlfilter.TrialFilter, error) {
	var f sqlfilter.TrialFilter

	if b.OrgID != nil {
		if *b.OrgID <= 0 {
			return f, fmt.Errorf("orgId must be a positive integer")
		}
		f.OrgID = b.OrgID
	}

	var err error
	if f.DateFrom, err = parseDate(b.DateFrom, "dateFrom"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(b.DateTo, "dateTo"); err != nil {
		return f, err
	}

	f.ValueMoments = splitMoments(b.ValueMoments)
	f.Search = strings.TrimSpace(b.SearchText)

	return f, nil
}

// parseDate validates an ISO yyyy-mm-dd date and returns it normalized, or ""
// when absent.
func parseDate(raw, name string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%s must be an ISO date (YYYY-MM-DD)", name)
	}
	return parsed.Format(dateLayout), nil
}

func splitMoments(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
