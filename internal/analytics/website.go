package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// WebsiteMetrics holds the headline numbers of the website analytics view.
type WebsiteMetrics struct {
	TotalSessions  int64   `json:"total_sessions"`
	TotalPageviews int64   `json:"total_pageviews"`
	BounceRate     float64 `json:"bounce_rate"`
}

// MonthRate is one calendar month of a rate series. Numerator and denominator
// ride along so the presentation layer can show absolute counts too.
type MonthRate struct {
	Month       string  `json:"month"`
	Numerator   int64   `json:"numerator"`
	Denominator int64   `json:"denominator"`
	Rate        float64 `json:"rate"`
}

// GetWebsiteMetrics computes session/pageview totals and the bounce rate for
// the filtered session set. A bounce is a session with exactly one pageview;
// sessions without pageviews stay in the denominator.
func GetWebsiteMetrics(db *gorm.DB, params QueryParams) (*WebsiteMetrics, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	var totals struct {
		TotalSessions  int64
		TotalPageviews int64
	}

	totalsQuery := fmt.Sprintf(`
	SELECT
		COUNT(DISTINCT s.website_session_id) as total_sessions,
		(
			SELECT COUNT(*)
			FROM website_pageviews p
			INNER JOIN website_sessions s ON s.website_session_id = p.website_session_id
			WHERE %s
		) as total_pageviews
	FROM website_sessions s
	WHERE %s
	`, sessionConditions, sessionConditions)

	args := append(append([]interface{}{}, sessionArgs...), sessionArgs...)

	if err := db.Raw(totalsQuery, args...).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("error calculating website totals: %w", err)
	}

	var bounced int64
	bounceQuery := fmt.Sprintf(`
	SELECT COUNT(*)
	FROM (
		SELECT p.website_session_id
		FROM website_pageviews p
		INNER JOIN website_sessions s ON s.website_session_id = p.website_session_id
		WHERE %s
		GROUP BY p.website_session_id
		HAVING COUNT(*) = 1
	)
	`, sessionConditions)

	if err := db.Raw(bounceQuery, sessionArgs...).Scan(&bounced).Error; err != nil {
		return nil, fmt.Errorf("error counting bounced sessions: %w", err)
	}

	bounceRate := 0.0
	if totals.TotalSessions > 0 {
		bounceRate = float64(bounced) / float64(totals.TotalSessions)
	}

	return &WebsiteMetrics{
		TotalSessions:  totals.TotalSessions,
		TotalPageviews: totals.TotalPageviews,
		BounceRate:     bounceRate,
	}, nil
}

// GetMonthlyBounceRate returns per-calendar-month bounce rates over the
// filtered sessions, months ascending.
func GetMonthlyBounceRate(db *gorm.DB, params QueryParams) ([]MonthRate, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	var rows []struct {
		Month    string
		Sessions int64
		Bounces  int64
	}

	query := fmt.Sprintf(`
	SELECT
		strftime('%%Y-%%m', s.created_at) as month,
		COUNT(DISTINCT s.website_session_id) as sessions,
		COUNT(DISTINCT CASE WHEN pv.pageview_count = 1 THEN s.website_session_id END) as bounces
	FROM website_sessions s
	LEFT JOIN (
		SELECT website_session_id, COUNT(*) as pageview_count
		FROM website_pageviews
		GROUP BY website_session_id
	) pv ON pv.website_session_id = s.website_session_id
	WHERE %s
	GROUP BY strftime('%%Y-%%m', s.created_at)
	ORDER BY month ASC
	`, sessionConditions)

	if err := db.Raw(query, sessionArgs...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error fetching monthly bounce rate: %w", err)
	}

	results := make([]MonthRate, len(rows))
	for i, row := range rows {
		rate := 0.0
		if row.Sessions > 0 {
			rate = float64(row.Bounces) / float64(row.Sessions)
		}
		results[i] = MonthRate{
			Month:       row.Month,
			Numerator:   row.Bounces,
			Denominator: row.Sessions,
			Rate:        rate,
		}
	}

	return results, nil
}

// GetMonthlyConversionRate returns per-calendar-month order/session ratios
// over the filtered sessions. Orders are left-joined, so a month with
// sessions but no orders renders with a rate of 0; months without sessions
// never appear because the grouping is over sessions.
func GetMonthlyConversionRate(db *gorm.DB, params QueryParams) ([]MonthRate, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")
	orderConditions, orderArgs := params.Selection.OrderConditions("o")

	var rows []struct {
		Month    string
		Sessions int64
		Orders   int64
	}

	query := fmt.Sprintf(`
	SELECT
		strftime('%%Y-%%m', s.created_at) as month,
		COUNT(DISTINCT s.website_session_id) as sessions,
		COUNT(DISTINCT o.order_id) as orders
	FROM website_sessions s
	LEFT JOIN orders o ON o.website_session_id = s.website_session_id AND %s
	WHERE %s
	GROUP BY strftime('%%Y-%%m', s.created_at)
	ORDER BY month ASC
	`, orderConditions, sessionConditions)

	args := append(append([]interface{}{}, orderArgs...), sessionArgs...)

	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error fetching monthly conversion rate: %w", err)
	}

	results := make([]MonthRate, len(rows))
	for i, row := range rows {
		rate := 0.0
		if row.Sessions > 0 {
			rate = float64(row.Orders) / float64(row.Sessions)
		}
		results[i] = MonthRate{
			Month:       row.Month,
			Numerator:   row.Orders,
			Denominator: row.Sessions,
			Rate:        rate,
		}
	}

	return results, nil
}

// GetSessionsByDevice returns distinct session counts grouped by device type,
// largest first. Sessions without a device type are reported as "unknown".
func GetSessionsByDevice(db *gorm.DB, params QueryParams) ([]MetricCountResult, error) {
	sessionConditions, sessionArgs := params.Selection.SessionConditions("s")

	results := []MetricCountResult{}

	query := fmt.Sprintf(`
	SELECT
		COALESCE(NULLIF(s.device_type, ''), 'unknown') as name,
		COUNT(DISTINCT s.website_session_id) as count
	FROM website_sessions s
	WHERE %s
	GROUP BY COALESCE(NULLIF(s.device_type, ''), 'unknown')
	ORDER BY count DESC, name ASC
	`, sessionConditions)

	if err := db.Raw(query, sessionArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching sessions by device: %w", err)
	}

	return results, nil
}
