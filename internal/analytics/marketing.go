package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"toylytics/internal/config"
)

// MarketingMetrics holds the headline numbers of the marketing view.
type MarketingMetrics struct {
	UniqueUsers            int64   `json:"unique_users"`
	TotalSessions          int64   `json:"total_sessions"`
	CustomerConversionRate float64 `json:"customer_conversion_rate"`
	RepeatUserRate         float64 `json:"repeat_user_rate"`
}

// GetMarketingMetrics computes user/session totals, the customer conversion
// rate, and the repeat user rate. The conversion denominator scope is taken
// from the query params (filtered vs unfiltered session users).
func GetMarketingMetrics(db *gorm.DB, params QueryParams) (*MarketingMetrics, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var sessionTotals struct {
		UniqueUsers   int64
		TotalSessions int64
	}

	sessionQuery := fmt.Sprintf(`
	SELECT
		COUNT(DISTINCT s.user_id) as unique_users,
		COUNT(DISTINCT s.website_session_id) as total_sessions
	FROM website_sessions s
	WHERE %s
	`, sessionConditions)

	if err := db.Raw(sessionQuery, sessionArgs...).Scan(&sessionTotals).Error; err != nil {
		return nil, fmt.Errorf("error calculating session totals: %w", err)
	}

	var purchasingUsers int64
	purchaserQuery := fmt.Sprintf(`
	SELECT COUNT(DISTINCT o.user_id)
	FROM orders o
	WHERE %s
	`, orderConditions)

	if err := db.Raw(purchaserQuery, orderArgs...).Scan(&purchasingUsers).Error; err != nil {
		return nil, fmt.Errorf("error counting purchasing users: %w", err)
	}

	denominator := sessionTotals.UniqueUsers
	if params.ConversionDenominator == config.ConversionDenominatorUnfiltered {
		if err := db.Raw(`SELECT COUNT(DISTINCT user_id) FROM website_sessions`).
			Scan(&denominator).Error; err != nil {
			return nil, fmt.Errorf("error counting unfiltered users: %w", err)
		}
	}

	conversionRate := 0.0
	if denominator > 0 {
		conversionRate = float64(purchasingUsers) / float64(denominator)
		// Orders can reference users absent from the session export; the
		// rate is still bounded to [0, 1].
		if conversionRate > 1 {
			conversionRate = 1
		}
	}

	repeatUserRate, err := getRepeatUserRate(db, params)
	if err != nil {
		return nil, err
	}

	return &MarketingMetrics{
		UniqueUsers:            sessionTotals.UniqueUsers,
		TotalSessions:          sessionTotals.TotalSessions,
		CustomerConversionRate: conversionRate,
		RepeatUserRate:         repeatUserRate,
	}, nil
}

// getRepeatUserRate returns the fraction of purchasing users with more than
// one distinct order in the filtered set, 0 when nobody purchased.
func getRepeatUserRate(db *gorm.DB, params QueryParams) (float64, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var result struct {
		TotalUsers  int64
		RepeatUsers int64
	}

	query := fmt.Sprintf(`
	SELECT
		COUNT(*) as total_users,
		COUNT(CASE WHEN order_count > 1 THEN 1 END) as repeat_users
	FROM (
		SELECT o.user_id, COUNT(DISTINCT o.order_id) as order_count
		FROM orders o
		WHERE %s
		GROUP BY o.user_id
	)
	`, orderConditions)

	if err := db.Raw(query, orderArgs...).Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("error calculating repeat user rate: %w", err)
	}

	if result.TotalUsers == 0 {
		return 0, nil
	}
	return float64(result.RepeatUsers) / float64(result.TotalUsers), nil
}

// GetRevenueByCampaign returns item revenue attributed per UTM campaign over
// the order→session join, highest first. Unattributed sessions (blank
// campaign) are excluded, matching how the campaign filter options are built.
func GetRevenueByCampaign(db *gorm.DB, params QueryParams) ([]CategoryValue, error) {
	return revenueByUTMField(db, params, "utm_campaign")
}

// GetRevenueBySource returns item revenue attributed per UTM source.
func GetRevenueBySource(db *gorm.DB, params QueryParams) ([]CategoryValue, error) {
	return revenueByUTMField(db, params, "utm_source")
}

func revenueByUTMField(db *gorm.DB, params QueryParams, field string) ([]CategoryValue, error) {
	orderConditions, orderArgs := params.Selection.OrderConditions("o")
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	results := []CategoryValue{}

	query := fmt.Sprintf(`
	SELECT
		s.%s as name,
		COALESCE(SUM(oi.price_usd), 0) as value
	FROM order_items oi
	INNER JOIN orders o ON o.order_id = oi.order_id
	INNER JOIN website_sessions s ON s.website_session_id = o.website_session_id
	WHERE %s
	AND %s
	AND s.%s != ''
	GROUP BY s.%s
	ORDER BY value DESC, name ASC
	`, field, orderConditions, sessionConditions, field, field)

	args := append(append([]interface{}{}, orderArgs...), sessionArgs...)

	if err := db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching revenue by %s: %w", field, err)
	}

	return results, nil
}
