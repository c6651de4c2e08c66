// Package orgdata fans out the per-organization detail queries. Each of the
// eleven sections settles independently: one failing query reports an error
// for its own key and never affects its siblings.
package orgdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/growthinsights/trialscope/internal/cache"
	"github.com/growthinsights/trialscope/internal/warehouse"
)

// How many section queries run against the warehouse at once.
const defaultConcurrency = 4

// SectionResult is one settled section: rows on success, a non-empty error
// string on failure, never both.
type SectionResult struct {
	Key  string
	Rows []warehouse.Row
	Err  string
}

// Section is the JSON shape of one section in the batch response. Exactly one
// of Data and Error is populated; an empty section is data:[] with error:null.
type Section struct {
	Data  []warehouse.Row `json:"data"`
	Error *string         `json:"error"`
}

// Bundle is the batch response: all eleven sections keyed by logical name.
type Bundle map[string]Section

// Warehouse is what the fan-out needs from the warehouse client: section
// queries plus a connectivity check run before any response begins.
type Warehouse interface {
	warehouse.Querier
	Ping(ctx context.Context) error
}

// Service runs the org-detail fan-out.
type Service struct {
	wh          Warehouse
	cache       cache.Cache
	cacheTTL    time.Duration
	concurrency int
}

func NewService(wh Warehouse, c cache.Cache, cacheTTL time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{wh: wh, cache: c, cacheTTL: cacheTTL, concurrency: defaultConcurrency}
}

// Ping verifies a warehouse connection can be obtained. Handlers call this
// before committing to a response, so a total outage is a request-level
// failure rather than eleven identical section errors.
func (s *Service) Ping(ctx context.Context) error {
	return s.wh.Ping(ctx)
}

// Stream runs all section queries concurrently and delivers each result as it
// settles, in completion order. The channel is closed after the last section;
// a cancelled context stops delivery but in-flight queries are left to finish.
func (s *Service) Stream(ctx context.Context, orgID int64) <-chan SectionResult {
	out := make(chan SectionResult)

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(s.concurrency)

		for _, q := range sectionQueries {
			g.Go(func() error {
				res := s.runSection(ctx, q, orgID)
				select {
				case out <- res:
				case <-ctx.Done():
				}
				return nil
			})
		}
		g.Wait()
	}()

	return out
}

// FetchAll is the join-barrier variant: it waits for every section and
// returns the full bundle, so callers always see all eleven keys.
func (s *Service) FetchAll(ctx context.Context, orgID int64) (Bundle, error) {
	key := cache.OrgDataKey(orgID)
	if s.cache.Enabled() {
		if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
			var bundle Bundle
			if err := json.Unmarshal(cached, &bundle); err == nil {
				return bundle, nil
			}
		}
	}

	bundle := make(Bundle, len(sectionQueries))
	for res := range s.Stream(ctx, orgID) {
		bundle[res.Key] = res.section()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.cache.Enabled() && bundle.clean() {
		if encoded, err := json.Marshal(bundle); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
				slog.Debug("org data cache write failed", "org_id", orgID, "error", err)
			}
		}
	}

	return bundle, nil
}

func (s *Service) runSection(ctx context.Context, q sectionQuery, orgID int64) SectionResult {
	rows, err := s.wh.Query(ctx, q.SQL, orgID)
	if err != nil {
		slog.Warn("org data section failed", "key", q.Key, "org_id", orgID, "error", err)
		return SectionResult{Key: q.Key, Err: err.Error()}
	}
	return SectionResult{Key: q.Key, Rows: rows}
}

func (r SectionResult) section() Section {
	if r.Err != "" {
		return Section{Error: &r.Err}
	}
	rows := r.Rows
	if rows == nil {
		rows = []warehouse.Row{}
	}
	return Section{Data: rows}
}

// clean reports whether every section succeeded; only fully successful
// bundles are cached, so a transient failure is retried on the next request.
func (b Bundle) clean() bool {
	for _, s := range b {
		if s.Error != nil {
			return false
		}
	}
	return true
}
