// Package analytics computes the dashboard's derived metrics from the
// imported snapshot. Every function is an independent read-only query over
// filtered orders/sessions plus the reference tables.
//
// The package is organized into focused modules:
//   - sales.go: revenue, order counts, average order value, yearly revenue
//   - products.go: unit counts, refund metrics, per-product breakdowns
//   - marketing.go: UTM revenue attribution, user and conversion metrics
//   - website.go: session, pageview, bounce, and device metrics
//   - funnel.go: purchase funnel stage counts
//
// All ratio metrics share one zero-denominator policy: a ratio with a zero
// denominator is exactly 0. No query ever returns NaN or an error for an
// empty result set; empty joins produce zero scalars and empty series.
package analytics

import "strings"

// MetricCountResult represents a generic key-count pair for query results
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CategoryValue represents a (category, amount) pair for chart series that
// carry currency amounts rather than counts.
type CategoryValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// generatePlaceholders generates a string of SQL placeholders for IN clause
func generatePlaceholders(count int) string {
	if count == 0 {
		return ""
	}
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = "?"
	}
	return strings.Join(placeholders, ", ")
}
