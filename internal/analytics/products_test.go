package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/analytics"
	"toylytics/internal/testsupport"
)

func TestGetProductMetrics(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateProduct(t, db, 1, "The Original Mr. Fuzzy")
	testsupport.CreateProduct(t, db, 2, "The Forever Love Bear")

	testsupport.CreateOrder(t, db, 1, 10, 100, created, 50)
	testsupport.CreateOrder(t, db, 2, 11, 101, created, 30)

	// five units, one refunded; Mr. Fuzzy outsells the Love Bear three to two
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 20)
	testsupport.CreateOrderItem(t, db, 2, 1, 1, 30)
	testsupport.CreateOrderItem(t, db, 3, 2, 2, 15)
	testsupport.CreateOrderItem(t, db, 4, 2, 2, 15)
	testsupport.CreateOrderItem(t, db, 5, 2, 1, 10)
	testsupport.CreateRefund(t, db, 1, 2, 1, 30)

	metrics, err := analytics.GetProductMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, int64(5), metrics.TotalUnitsSold)
	assert.Equal(t, int64(1), metrics.RefundedUnits)
	assert.InDelta(t, 0.2, metrics.RefundRate, 0.001)
	assert.InDelta(t, 30.0, metrics.TotalRefundAmount, 0.001)
	// 30 refunded out of 90 of item revenue
	assert.InDelta(t, 30.0/90.0, metrics.RevenueLostToRefunds, 0.001)
	assert.Equal(t, "The Original Mr. Fuzzy", metrics.TopProduct)
}

// An item without a refund row stays in the denominators and contributes
// exactly nothing to the refund sums.
func TestProductMetricsRefundlessItems(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateOrder(t, db, 1, 10, 100, created, 40)
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 20)
	testsupport.CreateOrderItem(t, db, 2, 1, 1, 20)

	metrics, err := analytics.GetProductMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.TotalUnitsSold)
	assert.Zero(t, metrics.RefundedUnits)
	assert.Zero(t, metrics.RefundRate)
	assert.Zero(t, metrics.TotalRefundAmount)
	assert.Zero(t, metrics.RevenueLostToRefunds)
}

// Equal unit counts fall back to the alphabetically first product name so the
// top product is deterministic.
func TestTopProductTieBreaksAlphabetically(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateProduct(t, db, 1, "The Original Mr. Fuzzy")
	testsupport.CreateProduct(t, db, 2, "The Forever Love Bear")

	testsupport.CreateOrder(t, db, 1, 10, 100, created, 40)
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 20)
	testsupport.CreateOrderItem(t, db, 2, 1, 2, 20)

	metrics, err := analytics.GetProductMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, "The Forever Love Bear", metrics.TopProduct)
}

func TestTopProductSentinelWhenNothingSold(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	metrics, err := analytics.GetProductMetrics(db, unrestricted(t))
	require.NoError(t, err)

	assert.Equal(t, analytics.NoProductSold, metrics.TopProduct)
	assert.Zero(t, metrics.TotalUnitsSold)
}

func TestGetRevenueByProduct(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateProduct(t, db, 1, "The Original Mr. Fuzzy")
	testsupport.CreateProduct(t, db, 2, "The Forever Love Bear")

	testsupport.CreateOrder(t, db, 1, 10, 100, created, 70)
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 25)
	testsupport.CreateOrderItem(t, db, 2, 1, 2, 45)

	series, err := analytics.GetRevenueByProduct(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "The Forever Love Bear", series[0].Name)
	assert.InDelta(t, 45.0, series[0].Value, 0.001)
	assert.Equal(t, "The Original Mr. Fuzzy", series[1].Name)
	assert.InDelta(t, 25.0, series[1].Value, 0.001)

	// decomposition: per-product revenue sums back to total revenue
	sales, err := analytics.GetSalesMetrics(db, unrestricted(t))
	require.NoError(t, err)
	total := 0.0
	for _, point := range series {
		total += point.Value
	}
	assert.InDelta(t, sales.TotalRevenue, total, 0.001)
}

func TestGetConversionRateByProduct(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateProduct(t, db, 1, "The Original Mr. Fuzzy")

	testsupport.CreateSession(t, db, 1, 100, created, "brand", "gsearch", "desktop")
	testsupport.CreateSession(t, db, 2, 101, created, "brand", "gsearch", "desktop")
	testsupport.CreateSession(t, db, 3, 102, created, "brand", "gsearch", "desktop")
	testsupport.CreateSession(t, db, 4, 103, created, "brand", "gsearch", "desktop")

	testsupport.CreateOrder(t, db, 1, 1, 100, created, 25)
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 25)

	results, err := analytics.GetConversionRateByProduct(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "The Original Mr. Fuzzy", results[0].Name)
	assert.Equal(t, int64(1), results[0].Orders)
	assert.InDelta(t, 0.25, results[0].ConversionRate, 0.001)
	assert.GreaterOrEqual(t, results[0].ConversionRate, 0.0)
	assert.LessOrEqual(t, results[0].ConversionRate, 1.0)
}

// With zero matching sessions the per-product order counts still render, each
// with a rate of exactly 0.
func TestConversionRateByProductZeroSessions(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	created := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateProduct(t, db, 1, "The Original Mr. Fuzzy")
	testsupport.CreateOrder(t, db, 1, 1, 100, created, 25)
	testsupport.CreateOrderItem(t, db, 1, 1, 1, 25)

	results, err := analytics.GetConversionRateByProduct(db, unrestricted(t))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Orders)
	assert.Zero(t, results[0].ConversionRate)
}
