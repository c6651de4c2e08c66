// Package sqlfilter builds bound-parameter SQL predicates from trial filters.
// Caller-supplied values are never spliced into the statement text; every
// condition uses a ? placeholder with a matching argument.
package sqlfilter

import "strings"

// Warehouse columns the filters predicate over.
const (
	ColOrgID        = "ORG_ID"
	ColAnalysisDate = "ANALYSIS_DATE"
	ColValueMoment  = "PRIMARY_VALUE_MOMENT_PRODUCT_AREA"
	ColTrialSummary = "TRIAL_SUMMARY"
)

// TrialFilter is the set of optional filters over trial analysis records.
// Zero value means "no filtering".
type TrialFilter struct {
	OrgID        *int64
	DateFrom     string // inclusive, ISO date (YYYY-MM-DD)
	DateTo       string // inclusive, ISO date (YYYY-MM-DD)
	ValueMoments []string
	Search       string // case-insensitive substring match on the summary
}

// IsZero reports whether no filter field is set.
func (f TrialFilter) IsZero() bool {
	return f.OrgID == nil && f.DateFrom == "" && f.DateTo == "" &&
		len(f.ValueMoments) == 0 && f.Search == ""
}

// Where returns a SQL boolean expression joining the present fields with AND,
// plus the bind arguments for its placeholders. An empty clause (and nil args)
// means the query is unfiltered. The clause never contains caller data.
func (f TrialFilter) Where() (string, []any) {
	var conds []string
	var args []any

	if f.OrgID != nil {
		conds = append(conds, ColOrgID+" = ?")
		args = append(args, *f.OrgID)
	}
	if f.DateFrom != "" {
		conds = append(conds, ColAnalysisDate+" >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, ColAnalysisDate+" <= ?")
		args = append(args, f.DateTo)
	}
	if len(f.ValueMoments) > 0 {
		conds = append(conds, ColValueMoment+" IN ("+placeholders(len(f.ValueMoments))+")")
		for _, vm := range f.ValueMoments {
			args = append(args, vm)
		}
	}
	if f.Search != "" {
		// ILIKE for case-insensitive substring search in Snowflake. LIKE
		// metacharacters in the search text are escaped so they match
		// literally instead of acting as wildcards.
		conds = append(conds, ColTrialSummary+` ILIKE ? ESCAPE '\\'`)
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
