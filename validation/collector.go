package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"quant-warehouse/ingest"
)

const (
	maxSampleRows   = 5
	maxSampleValues = 5
)

type issueKey struct {
	severity Severity
	dataset  ingest.Dataset
	rule     string
	field    string
}

// collector groups row-level violations into issues, keeping first-seen order
type collector struct {
	order  []issueKey
	issues map[issueKey]*Issue
	seen   map[issueKey]map[string]bool
}

func newCollector() *collector {
	return &collector{
		issues: make(map[issueKey]*Issue),
		seen:   make(map[issueKey]map[string]bool),
	}
}

// add records one violation. row < 0 means the issue is not tied to a row.
func (c *collector) add(sev Severity, ds ingest.Dataset, rule, field, message string, row int, value interface{}) {
	key := issueKey{sev, ds, rule, field}
	issue, ok := c.issues[key]
	if !ok {
		issue = &Issue{Severity: sev, Dataset: ds, Rule: rule, Field: field, Message: message}
		c.issues[key] = issue
		c.seen[key] = make(map[string]bool)
		c.order = append(c.order, key)
	}
	issue.Count++
	if row >= 0 && len(issue.Rows) < maxSampleRows {
		issue.Rows = append(issue.Rows, row)
	}
	if value == nil {
		return
	}
	v := formatValue(value)
	if v != "" && !c.seen[key][v] && len(issue.Values) < maxSampleValues {
		c.seen[key][v] = true
		issue.Values = append(issue.Values, v)
	}
}

func (c *collector) errorf(ds ingest.Dataset, rule, field string, row int, value interface{}, format string, args ...interface{}) {
	c.add(SeverityError, ds, rule, field, fmt.Sprintf(format, args...), row, value)
}

func (c *collector) warnf(ds ingest.Dataset, rule, field string, row int, value interface{}, format string, args ...interface{}) {
	c.add(SeverityWarning, ds, rule, field, fmt.Sprintf(format, args...), row, value)
}

func (c *collector) report() *Report {
	r := &Report{Errors: []Issue{}, Warnings: []Issue{}}
	for _, key := range c.order {
		issue := *c.issues[key]
		if issue.Severity == SeverityError {
			r.Errors = append(r.Errors, issue)
		} else {
			r.Warnings = append(r.Warnings, issue)
		}
	}
	return r
}

// formatValue renders a field value, dereferencing pointers. Nil renders as "".
func formatValue(value interface{}) string {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	switch v := rv.Interface().(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
