package analytics

import (
	"toylytics/internal/config"
	"toylytics/internal/filters"
)

// QueryParams contains common parameters for dashboard queries: the filter
// selection plus the denominator scope for the customer conversion rate.
type QueryParams struct {
	Selection filters.Selection

	// ConversionDenominator selects whether the customer conversion rate is
	// computed against filtered or unfiltered session users. The source data
	// supports both readings, so it is a parameter rather than a constant.
	ConversionDenominator string
}

// NewQueryParams creates query params for the given selection with the
// default (unfiltered) conversion denominator scope.
func NewQueryParams(sel filters.Selection) QueryParams {
	return QueryParams{
		Selection:             sel,
		ConversionDenominator: config.ConversionDenominatorUnfiltered,
	}
}
