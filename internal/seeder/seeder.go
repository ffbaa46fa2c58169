// Package seeder generates demo CSV exports so the dashboard can be explored
// without the real source data. The generated files use the same column sets
// the importer validates against.
package seeder

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"log/slog"

	"toylytics/internal/config"
	"toylytics/internal/datasets"
)

const timestampLayout = "2006-01-02 15:04:05"

// Seeder writes demo datasets into the configured data directory.
type Seeder struct {
	Logger       *slog.Logger
	Cfg          *config.Config
	SessionCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(logger *slog.Logger, cfg *config.Config, sessionCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		Logger:       logger,
		Cfg:          cfg,
		SessionCount: sessionCount,
	}
}

var products = []string{
	"The Original Mr. Fuzzy",
	"The Forever Love Bear",
	"The Birthday Sugar Panda",
	"The Hudson River Mini bear",
}

var campaigns = []string{"brand", "nonbrand", "pilot", ""}
var sources = []string{"gsearch", "bsearch", "socialbook", ""}
var devices = []string{"desktop", "mobile"}

// journeyTemplates are pageview paths a session walks through, from a bounce
// on the landing page up to a completed purchase.
var journeyTemplates = [][]string{
	{"/home"},
	{"/lander-1"},
	{"/home", "/products"},
	{"/home", "/products", "/the-original-mr-fuzzy"},
	{"/lander-2", "/products", "/the-forever-love-bear", "/cart"},
	{"/home", "/products", "/the-birthday-sugar-panda", "/cart", "/shipping"},
	{"/lander-1", "/products", "/the-original-mr-fuzzy", "/cart", "/shipping", "/billing", "/thank-you-for-your-order"},
	{"/home", "/products", "/the-forever-love-bear", "/cart", "/shipping", "/billing-2", "/thank-you-for-your-order"},
	{"/home", "/products", "/the-hudson-river-mini-bear", "/cart", "/shipping", "/billing", "/thank-you-for-your-order"},
}

// Run generates and writes the six demo CSV exports.
func (s *Seeder) Run() error {
	start := time.Now()
	s.Logger.Info("Generating demo datasets...",
		slog.String("dir", s.Cfg.DataDirectory),
		slog.Int("sessions", s.SessionCount))

	if err := os.MkdirAll(s.Cfg.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	sessions := [][]string{}
	pageviews := [][]string{}
	orders := [][]string{}
	orderItems := [][]string{}
	refunds := [][]string{}
	productRows := [][]string{}

	catalogStart := time.Date(2023, time.January, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range products {
		productRows = append(productRows, []string{
			strconv.Itoa(i + 1),
			catalogStart.AddDate(0, i*3, 0).Format(timestampLayout),
			name,
		})
	}

	pageviewID := 0
	orderID := 0
	orderItemID := 0
	refundID := 0

	for sessionID := 1; sessionID <= s.SessionCount; sessionID++ {
		userID := 1 + rand.IntN(s.SessionCount*2/3+1)
		createdAt := randomTimestamp()
		campaign := campaigns[rand.IntN(len(campaigns))]
		source := sources[rand.IntN(len(sources))]
		if campaign == "" {
			source = ""
		}

		sessions = append(sessions, []string{
			strconv.Itoa(sessionID),
			createdAt.Format(timestampLayout),
			strconv.Itoa(userID),
			strconv.Itoa(rand.IntN(2)),
			source,
			campaign,
			"",
			devices[rand.IntN(len(devices))],
			"",
		})

		journey := journeyTemplates[rand.IntN(len(journeyTemplates))]
		for step, path := range journey {
			pageviewID++
			pageviews = append(pageviews, []string{
				strconv.Itoa(pageviewID),
				createdAt.Add(time.Duration(step) * time.Minute).Format(timestampLayout),
				strconv.Itoa(sessionID),
				path,
			})
		}

		if journey[len(journey)-1] != "/thank-you-for-your-order" {
			continue
		}

		orderID++
		orderedAt := createdAt.Add(time.Duration(len(journey)) * time.Minute)
		itemCount := 1 + rand.IntN(2)
		primaryProduct := 1 + rand.IntN(len(products))

		orderTotal := 0.0
		orderCogs := 0.0
		for n := 0; n < itemCount; n++ {
			orderItemID++
			price := 29.99 + float64(rand.IntN(30))
			cogs := price * 0.45
			orderTotal += price
			orderCogs += cogs

			productID := primaryProduct
			if n > 0 {
				productID = 1 + rand.IntN(len(products))
			}

			orderItems = append(orderItems, []string{
				strconv.Itoa(orderItemID),
				orderedAt.Format(timestampLayout),
				strconv.Itoa(orderID),
				strconv.Itoa(productID),
				strconv.Itoa(boolToInt(n == 0)),
				formatUSD(price),
				formatUSD(cogs),
			})

			// roughly 1 in 12 items gets refunded
			if rand.IntN(12) == 0 {
				refundID++
				refunds = append(refunds, []string{
					strconv.Itoa(refundID),
					orderedAt.AddDate(0, 0, 3+rand.IntN(14)).Format(timestampLayout),
					strconv.Itoa(orderItemID),
					strconv.Itoa(orderID),
					formatUSD(price),
				})
			}
		}

		orders = append(orders, []string{
			strconv.Itoa(orderID),
			orderedAt.Format(timestampLayout),
			strconv.Itoa(sessionID),
			strconv.Itoa(userID),
			strconv.Itoa(primaryProduct),
			strconv.Itoa(itemCount),
			formatUSD(orderTotal),
			formatUSD(orderCogs),
		})
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{datasets.DatasetProducts, []string{"product_id", "created_at", "product_name"}, productRows},
		{datasets.DatasetSessions, []string{"website_session_id", "created_at", "user_id", "is_repeat_session", "utm_source", "utm_campaign", "utm_content", "device_type", "http_referer"}, sessions},
		{datasets.DatasetPageviews, []string{"website_pageview_id", "created_at", "website_session_id", "pageview_url"}, pageviews},
		{datasets.DatasetOrders, []string{"order_id", "created_at", "website_session_id", "user_id", "primary_product_id", "items_purchased", "price_usd", "cogs_usd"}, orders},
		{datasets.DatasetOrderItems, []string{"order_item_id", "created_at", "order_id", "product_id", "is_primary_item", "price_usd", "cogs_usd"}, orderItems},
		{datasets.DatasetRefunds, []string{"order_item_refund_id", "created_at", "order_item_id", "order_id", "refund_amount_usd"}, refunds},
	}

	for _, f := range files {
		if err := s.writeCSV(f.name, f.header, f.rows); err != nil {
			return err
		}
	}

	s.Logger.Info("Demo datasets generated",
		slog.Int("sessions", len(sessions)),
		slog.Int("pageviews", len(pageviews)),
		slog.Int("orders", len(orders)),
		slog.Int("refunds", len(refunds)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(s.Cfg.DataDirectory, name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func randomTimestamp() time.Time {
	start := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	span := int(time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC).Sub(start) / time.Second)
	return start.Add(time.Duration(rand.IntN(span)) * time.Second)
}

func formatUSD(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
