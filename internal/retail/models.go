// Package retail holds the commerce side of the snapshot: orders, order
// items, the product catalog, and refunds. Rows are imported once from the
// source exports and treated as read-only afterwards.
package retail

import "time"

// Order represents a placed order. Year and Month are derived from CreatedAt
// at import time so the year/month filters can hit plain indexed columns.
type Order struct {
	OrderID          uint      `gorm:"primaryKey;column:order_id" json:"order_id"`
	CreatedAt        time.Time `gorm:"index;not null" json:"created_at"`
	Year             int       `gorm:"index;not null" json:"year"`
	Month            int       `gorm:"index;not null" json:"month"`
	WebsiteSessionID uint      `gorm:"index;not null" json:"website_session_id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	PrimaryProductID uint      `gorm:"not null" json:"primary_product_id"`
	ItemsPurchased   int       `gorm:"not null;default:0" json:"items_purchased"`
	PriceUSD         float64   `gorm:"not null;default:0" json:"price_usd"`
	CogsUSD          float64   `gorm:"not null;default:0" json:"cogs_usd"`
}

// TableName pins the table name used by the raw aggregation queries.
func (Order) TableName() string { return "orders" }

// OrderItem is a single purchased unit. Many per order.
type OrderItem struct {
	OrderItemID   uint      `gorm:"primaryKey;column:order_item_id"`
	CreatedAt     time.Time `gorm:"not null"`
	OrderID       uint      `gorm:"index;not null"`
	ProductID     uint      `gorm:"index;not null"`
	IsPrimaryItem bool      `gorm:"not null;default:false"`
	PriceUSD      float64   `gorm:"not null;default:0"`
	CogsUSD       float64   `gorm:"not null;default:0"`
}

func (OrderItem) TableName() string { return "order_items" }

// Product is a catalog entry referenced by order items.
type Product struct {
	ProductID   uint      `gorm:"primaryKey;column:product_id"`
	CreatedAt   time.Time `gorm:"not null"`
	ProductName string    `gorm:"index;not null"`
}

func (Product) TableName() string { return "products" }

// Refund records money returned for one order item. Zero or one per item;
// items without a refund row count as a refund amount of exactly 0.
type Refund struct {
	OrderItemRefundID uint      `gorm:"primaryKey;column:order_item_refund_id"`
	CreatedAt         time.Time `gorm:"not null"`
	OrderItemID       uint      `gorm:"index;not null"`
	OrderID           uint      `gorm:"index;not null"`
	RefundAmountUSD   float64   `gorm:"not null;default:0"`
}

func (Refund) TableName() string { return "order_item_refunds" }
