package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// SalesMetrics holds the headline numbers of the sales view.
type SalesMetrics struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalOrders       int64   `json:"total_orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// YearRevenue is one point of the revenue-by-year series.
type YearRevenue struct {
	Year    int     `json:"year"`
	Revenue float64 `json:"revenue"`
}

// GetSalesMetrics computes total revenue, distinct order count, and average
// order value for the filtered order set. Revenue sums item prices over an
// inner join, so items whose order fell out of the filter contribute nothing.
func GetSalesMetrics(db *gorm.DB, params QueryParams) (*SalesMetrics, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var result struct {
		TotalRevenue float64
	}

	query := fmt.Sprintf(`
	SELECT COALESCE(SUM(oi.price_usd), 0) as total_revenue
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	WHERE %s
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error calculating total revenue: %w", err)
	}

	var totalOrders int64
	countQuery := fmt.Sprintf(`
	SELECT COUNT(DISTINCT o.order_id)
	FROM orders o
	WHERE %s
	`, orderConditions)

	if err := db.Raw(countQuery, orderArgs...).Scan(&totalOrders).Error; err != nil {
		return nil, fmt.Errorf("error counting orders: %w", err)
	}

	averageOrderValue := 0.0
	if totalOrders > 0 {
		averageOrderValue = result.TotalRevenue / float64(totalOrders)
	}

	return &SalesMetrics{
		TotalRevenue:      result.TotalRevenue,
		TotalOrders:       totalOrders,
		AverageOrderValue: averageOrderValue,
	}, nil
}

// GetRevenueByYear returns item revenue summed per order year, ascending.
func GetRevenueByYear(db *gorm.DB, params QueryParams) ([]YearRevenue, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	results := []YearRevenue{}

	query := fmt.Sprintf(`
	SELECT
		o.year as year,
		COALESCE(SUM(oi.price_usd), 0) as revenue
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	WHERE %s
	GROUP BY o.year
	ORDER BY o.year ASC
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching revenue by year: %w", err)
	}

	return results, nil
}
