// Package models contains shared data models used across the TrialScope codebase.
package models

import "time"

// TrialAnalysis is one trial-conversion analysis record, produced by the
// offline analysis pipeline and read-only from this service's point of view.
type TrialAnalysis struct {
	OrgID                  int64     `json:"org_id"`
	AnalysisDate           time.Time `json:"analysis_date"`
	AnalysisTimestamp      time.Time `json:"analysis_timestamp"`
	TrialSummary           string    `json:"trial_summary"`
	// FocusAreaActions is a JSON-encoded map of focus area -> recommended action,
	// passed through verbatim from the warehouse.
	FocusAreaActions       string    `json:"areas_of_focus_actions"`
	ValueMomentProductArea string    `json:"primary_value_moment_product_area"`
	ValueMomentDescription string    `json:"primary_value_moment_description"`
	ValueMomentEvidence    string    `json:"primary_value_moment_supporting_evidence"`
	ConfidenceScore        float64   `json:"confidence_score"`
	ModelUsed              string    `json:"model_used"`
	DAGRunID               string    `json:"dag_run_id"`
}
