package metasummary

import (
	"fmt"
	"strings"

	"github.com/growthinsights/trialscope/pkg/models"
)

// buildPrompt renders the analyst prompt for a batch of trial analyses. The
// model is asked for four sections so the UI can render a predictable layout.
func buildPrompt(trials []models.TrialAnalysis, dateRange string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a product-led growth analyst. Below are %d trial conversion analyses covering %s. Each analysis summarizes how one organization used the product during its trial and what drove (or blocked) its conversion to a paid plan.\n\n", len(trials), dateRange)

	for i, t := range trials {
		fmt.Fprintf(&b, "--- Trial %d (Org %d, analyzed %s) ---\n", i+1, t.OrgID, t.AnalysisDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "Summary: %s\n", t.TrialSummary)
		if t.ValueMomentProductArea != "" {
			fmt.Fprintf(&b, "Primary value moment: %s — %s\n", t.ValueMomentProductArea, t.ValueMomentDescription)
		}
		if t.ValueMomentEvidence != "" {
			fmt.Fprintf(&b, "Supporting evidence: %s\n", t.ValueMomentEvidence)
		}
		if t.FocusAreaActions != "" {
			fmt.Fprintf(&b, "Recommended focus actions: %s\n", t.FocusAreaActions)
		}
		fmt.Fprintf(&b, "Confidence: %.2f\n\n", t.ConfidenceScore)
	}

	b.WriteString(`Write a meta-summary of these trials in Markdown with exactly these four sections:

## Common Patterns
What themes recur across organizations? How do successful trials typically progress?

## Most Frequent Value Moments
Which product areas most often deliver the decisive value moment, and what does that moment look like?

## Notable Outliers
Which organizations diverge from the common patterns, and why are they interesting?

## Strategic Recommendations
What should the go-to-market and product teams do differently based on this batch?

Be specific: cite organization ids and concrete evidence from the analyses rather than generalities. Keep the whole summary under 800 words.`)

	return b.String()
}

// formatDateRange renders the span of analysis dates, oldest to newest.
func formatDateRange(trials []models.TrialAnalysis) string {
	if len(trials) == 0 {
		return ""
	}
	oldest, newest := trials[0].AnalysisDate, trials[0].AnalysisDate
	for _, t := range trials[1:] {
		if t.AnalysisDate.Before(oldest) {
			oldest = t.AnalysisDate
		}
		if t.AnalysisDate.After(newest) {
			newest = t.AnalysisDate
		}
	}

	const layout = "Jan 2, 2006"
	if oldest.Equal(newest) {
		return oldest.Format(layout)
	}
	return oldest.Format(layout) + " to " + newest.Format(layout)
}
