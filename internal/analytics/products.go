package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// NoProductSold is the sentinel emitted for "top product" when the filtered
// set contains no sold units. The presentation layer renders it distinctly
// from a real product name.
const NoProductSold = "N/A"

// ProductMetrics holds the headline numbers of the product performance view.
type ProductMetrics struct {
	TotalUnitsSold       int64   `json:"total_units_sold"`
	RefundedUnits        int64   `json:"refunded_units"`
	RefundRate           float64 `json:"refund_rate"`
	TotalRefundAmount    float64 `json:"total_refund_amount"`
	RevenueLostToRefunds float64 `json:"revenue_lost_to_refunds"`
	TopProduct           string  `json:"top_product"`
}

// ProductConversion is the per-product order count and its share of the
// filtered session total.
type ProductConversion struct {
	Name           string  `json:"name"`
	Orders         int64   `json:"orders"`
	ConversionRate float64 `json:"conversion_rate"`
}

// GetProductMetrics computes unit and refund metrics over the filtered
// order/item join. Refunds are left-joined with a declared default of 0, so
// an item without a refund row stays in every denominator and contributes
// exactly nothing to the refund sums.
func GetProductMetrics(db *gorm.DB, params QueryParams) (*ProductMetrics, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var result struct {
		TotalUnits    int64
		RefundedUnits int64
		RefundAmount  float64
		ItemRevenue   float64
	}

	query := fmt.Sprintf(`
	SELECT
		COUNT(*) as total_units,
		COUNT(CASE WHEN COALESCE(r.refund_amount_usd, 0) > 0 THEN 1 END) as refunded_units,
		COALESCE(SUM(COALESCE(r.refund_amount_usd, 0)), 0) as refund_amount,
		COALESCE(SUM(oi.price_usd), 0) as item_revenue
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	LEFT JOIN order_item_refunds r ON r.order_item_id = oi.order_item_id
	WHERE %s
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error calculating product metrics: %w", err)
	}

	refundRate := 0.0
	if result.TotalUnits > 0 {
		refundRate = float64(result.RefundedUnits) / float64(result.TotalUnits)
	}

	revenueLost := 0.0
	if result.ItemRevenue > 0 {
		revenueLost = result.RefundAmount / result.ItemRevenue
	}

	topProduct, err := getTopProduct(db, params)
	if err != nil {
		return nil, err
	}

	return &ProductMetrics{
		TotalUnitsSold:       result.TotalUnits,
		RefundedUnits:        result.RefundedUnits,
		RefundRate:           refundRate,
		TotalRefundAmount:    result.RefundAmount,
		RevenueLostToRefunds: revenueLost,
		TopProduct:           topProduct,
	}, nil
}

// getTopProduct returns the product name with the most sold units, or the
// NoProductSold sentinel when the filtered set sold nothing.
func getTopProduct(db *gorm.DB, params QueryParams) (string, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var rows []struct {
		Name  string
		Count int64
	}

	query := fmt.Sprintf(`
	SELECT
		COALESCE(p.product_name, 'Unknown') as name,
		COUNT(*) as count
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	LEFT JOIN products p ON p.product_id = oi.product_id
	WHERE %s
	GROUP BY COALESCE(p.product_name, 'Unknown')
	ORDER BY count DESC, name ASC
	LIMIT 1
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&rows).Error; err != nil {
		return "", fmt.Errorf("error fetching top product: %w", err)
	}

	if len(rows) == 0 {
		return NoProductSold, nil
	}
	return rows[0].Name, nil
}

// GetRevenueByProduct returns item revenue summed per product name,
// highest first.
func GetRevenueByProduct(db *gorm.DB, params QueryParams) ([]CategoryValue, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	results := []CategoryValue{}

	query := fmt.Sprintf(`
	SELECT
		COALESCE(p.product_name, 'Unknown') as name,
		COALESCE(SUM(oi.price_usd), 0) as value
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	LEFT JOIN products p ON p.product_id = oi.product_id
	WHERE %s
	GROUP BY COALESCE(p.product_name, 'Unknown')
	ORDER BY value DESC, name ASC
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching revenue by product: %w", err)
	}

	return results, nil
}

// GetConversionRateByProduct returns distinct orders per product divided by
// the filtered session total. With zero sessions the per-product order counts
// still render; every rate is 0.
func GetConversionRateByProduct(db *gorm.DB, params QueryParams) ([]ProductConversion, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	var totalSessions int64
	sessionQuery := fmt.Sprintf(`
	SELECT COUNT(DISTINCT s.website_session_id)
	FROM website_sessions s
	WHERE %s
	`, sessionConditions)

	if err := db.Raw(sessionQuery, sessionArgs...).Scan(&totalSessions).Error; err != nil {
		return nil, fmt.Errorf("error counting sessions for product conversion: %w", err)
	}

	results := []ProductConversion{}

	query := fmt.Sprintf(`
	SELECT
		COALESCE(p.product_name, 'Unknown') as name,
		COUNT(DISTINCT oi.order_id) as orders
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	LEFT JOIN products p ON p.product_id = oi.product_id
	WHERE %s
	GROUP BY COALESCE(p.product_name, 'Unknown')
	ORDER BY orders DESC, name ASC
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching orders by product: %w", err)
	}

	for i := range results {
		if totalSessions > 0 {
			results[i].ConversionRate = float64(results[i].Orders) / float64(totalSessions)
		}
	}

	return results, nil
}
