// Package validation checks raw batches before they are loaded. Errors block the load; warnings
// are reported and the load proceeds.
package validation

import (
	"fmt"
	"strings"

	"quant-warehouse/ingest"
)

// Severity of an issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue aggregates every violation of one rule on one field of one dataset
type Issue struct {
	Severity Severity       `json:"severity"`
	Dataset  ingest.Dataset `json:"dataset"`
	Rule     string         `json:"rule"`
	Field    string         `json:"field,omitempty"`
	Message  string         `json:"message"`
	Count    int            `json:"count"`
	Rows     []int          `json:"rows,omitempty"`   // first offending row indexes, 0-based
	Values   []string       `json:"values,omitempty"` // distinct offending values
}

// String renders the issue with its count and sample values
func (i Issue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d rows", i.Message, i.Count)
	if len(i.Values) > 0 {
		fmt.Fprintf(&sb, "; values: %s", strings.Join(i.Values, ", "))
	}
	sb.WriteString(")")
	return sb.String()
}

// Report is the verdict for one batch
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the batch may be loaded
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a ValidationError carrying the error issues, or nil if the batch is valid
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Issues: r.Errors}
}

// WarningCount returns the number of warning rules triggered
func (r *Report) WarningCount() int {
	return len(r.Warnings)
}

// ValidationError is a hard validation failure that blocks loading
type ValidationError struct {
	Issues []Issue
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e.Issues), strings.Join(parts, "; "))
}
