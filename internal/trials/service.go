// Package trials serves the deduplicated, filterable listing of trial
// conversion analyses. Only the most recent analysis per organization is
// visible; older runs are kept in the warehouse but never listed.
package trials

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/growthinsights/trialscope/internal/cache"
	"github.com/growthinsights/trialscope/internal/warehouse"
	"github.com/growthinsights/trialscope/pkg/models"
	"github.com/growthinsights/trialscope/pkg/sqlfilter"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

const trialColumns = "ORG_ID, ANALYSIS_DATE, ANALYSIS_TIMESTAMP, TRIAL_SUMMARY, " +
	"AREAS_OF_FOCUS_ACTIONS, PRIMARY_VALUE_MOMENT_PRODUCT_AREA, " +
	"PRIMARY_VALUE_MOMENT_DESCRIPTION, PRIMARY_VALUE_MOMENT_SUPPORTING_EVIDENCE, " +
	"CONFIDENCE_SCORE, MODEL_USED, DAG_RUN_ID"

// ListParams is the pagination window plus filters for a listing request.
type ListParams struct {
	Limit  int
	Offset int
	Filter sqlfilter.TrialFilter
}

// ListResult is one page of trials plus the total size of the full
// deduplicated, filtered set.
type ListResult struct {
	Trials []models.TrialAnalysis `json:"data"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// Service runs the listing queries against the warehouse, with an optional
// short-lived page cache.
type Service struct {
	wh       warehouse.Querier
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewService(wh warehouse.Querier, c cache.Cache, cacheTTL time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{wh: wh, cache: c, cacheTTL: cacheTTL}
}

// List returns one page of the deduplicated-latest listing and the total
// count of the full filtered set (independent of limit/offset).
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	p = clamp(p)

	key := s.pageKey(p)
	if s.cache.Enabled() {
		if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
			var result ListResult
			if err := json.Unmarshal(cached, &result); err == nil {
				return &result, nil
			}
		}
	}

	where, args := p.Filter.Where()

	trials, err := s.fetch(ctx, where, append(args, p.Limit, p.Offset))
	if err != nil {
		return nil, err
	}

	total, err := s.count(ctx, where, args)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Trials: trials, Total: total, Limit: p.Limit, Offset: p.Offset}

	if s.cache.Enabled() {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
				slog.Debug("trial page cache write failed", "error", err)
			}
		}
	}

	return result, nil
}

// Recent returns the deduplicated-latest set capped at limit rows, newest
// first, with no offset. Used by the meta-summary generator.
func (s *Service) Recent(ctx context.Context, filter sqlfilter.TrialFilter, limit int) ([]models.TrialAnalysis, error) {
	where, args := filter.Where()
	return s.fetch(ctx, where, append(args, limit, 0))
}

func (s *Service) fetch(ctx context.Context, where string, args []any) ([]models.TrialAnalysis, error) {
	rows, err := s.wh.Query(ctx, listQuery(where), args...)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}

	trials := make([]models.TrialAnalysis, 0, len(rows))
	for _, row := range rows {
		trials = append(trials, rowToTrial(row))
	}
	return trials, nil
}

func (s *Service) count(ctx context.Context, where string, args []any) (int, error) {
	rows, err := s.wh.Query(ctx, countQuery(where), args...)
	if err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(asInt64(rows[0]["TOTAL"])), nil
}

func (s *Service) pageKey(p ListParams) string {
	f := p.Filter
	parts := []string{strconv.Itoa(p.Limit), strconv.Itoa(p.Offset)}
	if f.OrgID != nil {
		parts = append(parts, strconv.FormatInt(*f.OrgID, 10))
	}
	parts = append(parts, f.DateFrom, f.DateTo, strings.Join(f.ValueMoments, "\x1f"), f.Search)
	return cache.TrialPageKey(cache.Hash(parts...))
}

// listQuery ranks analyses per organization by recency and keeps rank 1, so
// the listing shows at most one record per org.
func listQuery(where string) string {
	return "SELECT " + trialColumns + "\n" +
		"FROM (\n" +
		"  SELECT *, ROW_NUMBER() OVER (PARTITION BY ORG_ID ORDER BY ANALYSIS_DATE DESC) AS rn\n" +
		"  FROM FACT_TRIAL_ANALYSIS" + whereSQL(where) + "\n" +
		") WHERE rn = 1\n" +
		"ORDER BY ANALYSIS_DATE DESC\n" +
		"LIMIT ? OFFSET ?"
}

// countQuery sizes the full deduplicated filtered set, ignoring pagination.
func countQuery(where string) string {
	return "SELECT COUNT(*) AS TOTAL\n" +
		"FROM (\n" +
		"  SELECT ORG_ID, ROW_NUMBER() OVER (PARTITION BY ORG_ID ORDER BY ANALYSIS_DATE DESC) AS rn\n" +
		"  FROM FACT_TRIAL_ANALYSIS" + whereSQL(where) + "\n" +
		") WHERE rn = 1"
}

func whereSQL(where string) string {
	if where == "" {
		return ""
	}
	return "\n  WHERE " + where
}

func clamp(p ListParams) ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func rowToTrial(r warehouse.Row) models.TrialAnalysis {
	return models.TrialAnalysis{
		OrgID:                  asInt64(r["ORG_ID"]),
		AnalysisDate:           asTime(r["ANALYSIS_DATE"]),
		AnalysisTimestamp:      asTime(r["ANALYSIS_TIMESTAMP"]),
		TrialSummary:           asString(r["TRIAL_SUMMARY"]),
		FocusAreaActions:       asString(r["AREAS_OF_FOCUS_ACTIONS"]),
		ValueMomentProductArea: asString(r["PRIMARY_VALUE_MOMENT_PRODUCT_AREA"]),
		ValueMomentDescription: asString(r["PRIMARY_VALUE_MOMENT_DESCRIPTION"]),
		ValueMomentEvidence:    asString(r["PRIMARY_VALUE_MOMENT_SUPPORTING_EVIDENCE"]),
		ConfidenceScore:        asFloat64(r["CONFIDENCE_SCORE"]),
		ModelUsed:              asString(r["MODEL_USED"]),
		DAGRunID:               asString(r["DAG_RUN_ID"]),
	}
}

// The Snowflake driver's type mapping varies by column type and result
// format; these coercions accept every representation it produces.

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
