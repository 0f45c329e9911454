package domain

import (
	"fmt"
	"time"
)

// IssueSeverity grades a data quality finding.
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityFatal   IssueSeverity = "fatal"
)

// IssueKind identifies the validation check that produced an issue.
type IssueKind string

const (
	IssueIncomplete  IssueKind = "incomplete"
	IssueDuplicate   IssueKind = "duplicate"
	IssueStale       IssueKind = "stale"
	IssuePriceSanity IssueKind = "price_sanity"
	IssueAnomaly     IssueKind = "anomaly"
	IssueEmptySeries IssueKind = "empty_series"
)

// Issue is a single data quality finding for a series.
type Issue struct {
	Kind     IssueKind     `json:"kind"`
	Severity IssueSeverity `json:"severity"`
	Date     time.Time     `json:"date,omitempty"`
	Message  string        `json:"message"`
}

// String renders the issue for human-readable failure reasons.
func (i Issue) String() string {
	if i.Date.IsZero() {
		return fmt.Sprintf("[%s/%s] %s", i.Kind, i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", i.Kind, i.Severity, i.Date.Format("2006-01-02"), i.Message)
}

// ValidationReport is the per-symbol outcome of data quality validation.
// Accepted is false iff at least one fatal issue was found, in which case
// CleanedSeries is nil.
type ValidationReport struct {
	Symbol        Symbol     `json:"symbol"`
	Accepted      bool       `json:"accepted"`
	Issues        []Issue    `json:"issues,omitempty"`
	CleanedSeries []PriceBar `json:"cleaned_series,omitempty"`
}

// FatalIssues returns only the fatal findings.
func (r ValidationReport) FatalIssues() []Issue {
	var fatal []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityFatal {
			fatal = append(fatal, issue)
		}
	}
	return fatal
}

// Warnings returns only the non-fatal findings.
func (r ValidationReport) Warnings() []Issue {
	var warnings []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}
