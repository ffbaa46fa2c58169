package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/analytics"
	"toylytics/internal/testsupport"
)

func TestGetWebsiteMetrics(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	// session 1 bounces (exactly one pageview), session 2 does not
	testsupport.CreateSession(t, db, 1, 100, created, "brand", "gsearch", "desktop")
	testsupport.CreateSession(t, db, 2, 101, created, "brand", "gsearch", "mobile")
	testsupport.CreatePageview(t, db, 1, 1, "/home", created)
	testsupport.CreatePageview(t, db, 2, 2, "/home", created)
	testsupport.CreatePageview(t, db, 3, 2, "/products", created.Add(time.Minute))

	metrics, err := analytics.GetWebsiteMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.TotalSessions)
	assert.Equal(t, int64(3), metrics.TotalPageviews)
	assert.InDelta(t, 0.5, metrics.BounceRate, 0.001)
}

// Sessions without any pageviews stay in the bounce denominator but never
// count as bounces.
func TestWebsiteMetricsPageviewlessSession(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateSession(t, db, 1, 100, created, "", "", "desktop")
	testsupport.CreateSession(t, db, 2, 101, created, "", "", "desktop")
	testsupport.CreatePageview(t, db, 1, 1, "/home", created)

	metrics, err := analytics.GetWebsiteMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.TotalSessions)
	assert.InDelta(t, 0.5, metrics.BounceRate, 0.001)
}

func TestWebsiteMetricsEmptySnapshot(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	metrics, err := analytics.GetWebsiteMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Zero(t, metrics.TotalSessions)
	assert.Zero(t, metrics.TotalPageviews)
	assert.Zero(t, metrics.BounceRate)
}

func TestGetMonthlyBounceRate(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	june := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	july := time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC)

	testsupport.CreateSession(t, db, 1, 100, june, "", "", "desktop")
	testsupport.CreateSession(t, db, 2, 101, june, "", "", "desktop")
	testsupport.CreateSession(t, db, 3, 102, july, "", "", "desktop")

	testsupport.CreatePageview(t, db, 1, 1, "/home", june)
	testsupport.CreatePageview(t, db, 2, 2, "/home", june)
	testsupport.CreatePageview(t, db, 3, 2, "/products", june.Add(time.Minute))
	testsupport.CreatePageview(t, db, 4, 3, "/home", july)
	testsupport.CreatePageview(t, db, 5, 3, "/cart", july.Add(time.Minute))

	series, err := analytics.GetMonthlyBounceRate(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "2024-06", series[0].Month)
	assert.InDelta(t, 0.5, series[0].Rate, 0.001)
	assert.Equal(t, "2024-07", series[1].Month)
	assert.Zero(t, series[1].Rate)
}

func TestGetMonthlyConversionRate(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	june := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	july := time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC)

	testsupport.CreateSession(t, db, 1, 100, june, "", "", "desktop")
	testsupport.CreateSession(t, db, 2, 101, june, "", "", "desktop")
	// July has sessions but no orders; it must render with a rate of 0
	testsupport.CreateSession(t, db, 3, 102, july, "", "", "desktop")

	testsupport.CreateOrder(t, db, 1, 1, 100, june, 25)

	series, err := analytics.GetMonthlyConversionRate(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "2024-06", series[0].Month)
	assert.Equal(t, int64(1), series[0].Numerator)
	assert.Equal(t, int64(2), series[0].Denominator)
	assert.InDelta(t, 0.5, series[0].Rate, 0.001)

	assert.Equal(t, "2024-07", series[1].Month)
	assert.Zero(t, series[1].Numerator)
	assert.Zero(t, series[1].Rate)
}

func TestGetSessionsByDevice(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateSession(t, db, 1, 100, created, "", "", "desktop")
	testsupport.CreateSession(t, db, 2, 101, created, "", "", "desktop")
	testsupport.CreateSession(t, db, 3, 102, created, "", "", "mobile")
	testsupport.CreateSession(t, db, 4, 103, created, "", "", "")

	results, err := analytics.GetSessionsByDevice(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "desktop", results[0].Name)
	assert.Equal(t, int64(2), results[0].Count)

	names := []string{results[1].Name, results[2].Name}
	assert.Contains(t, names, "mobile")
	assert.Contains(t, names, "unknown")
}
