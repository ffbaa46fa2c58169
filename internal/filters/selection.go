// Package filters implements the dashboard filter engine. A Selection holds
// five independent dimensions; each is either unrestricted or pinned to one
// value. Year and month apply to orders, campaign/source/device to sessions.
package filters

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"toylytics/internal/retail"
	"toylytics/internal/traffic"
)

// AllValue is the query-string sentinel meaning "no restriction". It exists
// only at the HTTP boundary; internally a Choice carries an explicit
// restricted/unrestricted state so the literal string can never collide with
// a data value.
const AllValue = "All"

// Choice is one filter dimension: unrestricted, or restricted to one value.
type Choice[T comparable] struct {
	restricted bool
	value      T
}

// Any returns an unrestricted choice.
func Any[T comparable]() Choice[T] {
	return Choice[T]{}
}

// Exactly returns a choice restricted to v.
func Exactly[T comparable](v T) Choice[T] {
	return Choice[T]{restricted: true, value: v}
}

// Value returns the restriction value and whether the choice is restricted.
func (c Choice[T]) Value() (T, bool) {
	return c.value, c.restricted
}

// Restricted reports whether the choice restricts its dimension.
func (c Choice[T]) Restricted() bool {
	return c.restricted
}

// Selection is a full filter selection across the five dimensions.
type Selection struct {
	Year     Choice[int]
	Month    Choice[int]
	Campaign Choice[string]
	Source   Choice[string]
	Device   Choice[string]
}

// ParseSelection builds a Selection from raw query values. An empty value or
// the "All" sentinel (case-insensitive) leaves the dimension unrestricted.
// Year and month must parse as integers when present.
func ParseSelection(year, month, campaign, source, device string) (Selection, error) {
	sel := Selection{
		Year:     Any[int](),
		Month:    Any[int](),
		Campaign: Any[string](),
		Source:   Any[string](),
		Device:   Any[string](),
	}

	if restricts(year) {
		y, err := strconv.Atoi(year)
		if err != nil {
			return Selection{}, fmt.Errorf("invalid year filter %q: %w", year, err)
		}
		sel.Year = Exactly(y)
	}

	if restricts(month) {
		m, err := strconv.Atoi(month)
		if err != nil {
			return Selection{}, fmt.Errorf("invalid month filter %q: %w", month, err)
		}
		if m < 1 || m > 12 {
			return Selection{}, fmt.Errorf("invalid month filter %q: out of range", month)
		}
		sel.Month = Exactly(m)
	}

	if restricts(campaign) {
		sel.Campaign = Exactly(campaign)
	}
	if restricts(source) {
		sel.Source = Exactly(source)
	}
	if restricts(device) {
		sel.Device = Exactly(device)
	}

	return sel, nil
}

func restricts(raw string) bool {
	return raw != "" && !strings.EqualFold(raw, AllValue)
}

// OrderConditions returns a SQL predicate fragment over the orders table for
// the year/month dimensions, with alias as the table alias. Unrestricted
// dimensions contribute nothing; a fully unrestricted selection yields the
// always-true predicate so callers can splice it into a fixed WHERE clause.
func (s Selection) OrderConditions(alias string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if year, ok := s.Year.Value(); ok {
		conditions = append(conditions, alias+".year = ?")
		args = append(args, year)
	}
	if month, ok := s.Month.Value(); ok {
		conditions = append(conditions, alias+".month = ?")
		args = append(args, month)
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), args
}

// SessionConditions returns a SQL predicate fragment over the
// website_sessions table for the campaign/source/device dimensions.
func (s Selection) SessionConditions(alias string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if campaign, ok := s.Campaign.Value(); ok {
		conditions = append(conditions, alias+".utm_campaign = ?")
		args = append(args, campaign)
	}
	if source, ok := s.Source.Value(); ok {
		conditions = append(conditions, alias+".utm_source = ?")
		args = append(args, source)
	}
	if device, ok := s.Device.Value(); ok {
		conditions = append(conditions, alias+".device_type = ?")
		args = append(args, device)
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), args
}

// FilterOrders materializes the order subset matching the selection. The base
// table is never touched; an empty result is a valid outcome, not an error.
func FilterOrders(db *gorm.DB, sel Selection) ([]retail.Order, error) {
	conditions, args := sel.OrderConditions("orders")

	orders := []retail.Order{}
	if err := db.Where(conditions, args...).Order("order_id ASC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("error filtering orders: %w", err)
	}

	return orders, nil
}

// FilterSessions materializes the session subset matching the selection.
func FilterSessions(db *gorm.DB, sel Selection) ([]traffic.WebsiteSession, error) {
	conditions, args := sel.SessionConditions("website_sessions")

	sessions := []traffic.WebsiteSession{}
	if err := db.Where(conditions, args...).Order("website_session_id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("error filtering sessions: %w", err)
	}

	return sessions, nil
}
