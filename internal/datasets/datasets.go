// Package datasets imports the six source CSV exports into the SQLite
// snapshot. Each dataset is validated against its required column set before
// any row is inserted, and a reload replaces the previous snapshot atomically
// within one transaction.
package datasets

import "fmt"

// Dataset names double as the CSV file basenames under the data directory.
const (
	DatasetOrders     = "orders"
	DatasetOrderItems = "order_items"
	DatasetProducts   = "products"
	DatasetRefunds    = "order_item_refunds"
	DatasetSessions   = "website_sessions"
	DatasetPageviews  = "website_pageviews"
)

// requiredColumns lists, per dataset, the header columns an export must carry.
// Extra columns are ignored; a missing one aborts the import with a
// MissingDataError before any row is touched.
var requiredColumns = map[string][]string{
	DatasetOrders: {
		"order_id", "created_at", "website_session_id", "user_id",
		"primary_product_id", "items_purchased", "price_usd", "cogs_usd",
	},
	DatasetOrderItems: {
		"order_item_id", "created_at", "order_id", "product_id",
		"is_primary_item", "price_usd", "cogs_usd",
	},
	DatasetProducts: {
		"product_id", "created_at", "product_name",
	},
	DatasetRefunds: {
		"order_item_refund_id", "created_at", "order_item_id", "order_id",
		"refund_amount_usd",
	},
	DatasetSessions: {
		"website_session_id", "created_at", "user_id", "is_repeat_session",
		"utm_source", "utm_campaign", "utm_content", "device_type", "http_referer",
	},
	DatasetPageviews: {
		"website_pageview_id", "created_at", "website_session_id", "pageview_url",
	},
}

// MissingDataError reports a dataset whose export lacks a required column.
type MissingDataError struct {
	Dataset string
	Column  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("dataset %s is missing required column %s", e.Dataset, e.Column)
}
