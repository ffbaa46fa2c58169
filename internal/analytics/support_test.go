package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"toylytics/internal/analytics"
	"toylytics/internal/filters"
)

// mustParams parses a filter selection from raw values, failing the test on
// invalid input. Empty strings leave a dimension unrestricted.
func mustParams(t *testing.T, year, month, campaign, source, device string) analytics.QueryParams {
	t.Helper()

	sel, err := filters.ParseSelection(year, month, campaign, source, device)
	require.NoError(t, err)
	return analytics.NewQueryParams(sel)
}

func unrestricted(t *testing.T) analytics.QueryParams {
	t.Helper()
	return mustParams(t, "", "", "", "", "")
}
