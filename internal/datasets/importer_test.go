package datasets_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/config"
	"toylytics/internal/datasets"
	"toylytics/internal/retail"
	"toylytics/internal/testsupport"
	"toylytics/internal/traffic"
)

func writeAllFixtures(t *testing.T, dir string) {
	t.Helper()

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetProducts,
		[]string{"product_id", "created_at", "product_name"},
		[][]string{
			{"1", "2023-01-01 09:00:00", "The Original Mr. Fuzzy"},
			{"2", "2023-04-01 09:00:00", "The Forever Love Bear"},
		})

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetOrders,
		[]string{"order_id", "created_at", "website_session_id", "user_id", "primary_product_id", "items_purchased", "price_usd", "cogs_usd"},
		[][]string{
			{"1", "2024-06-01 10:05:00", "1", "100", "1", "2", "49.98", "22.49"},
		})

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetOrderItems,
		[]string{"order_item_id", "created_at", "order_id", "product_id", "is_primary_item", "price_usd", "cogs_usd"},
		[][]string{
			{"1", "2024-06-01 10:05:00", "1", "1", "1", "29.99", "13.49"},
			{"2", "2024-06-01 10:05:00", "1", "2", "0", "19.99", "9.00"},
		})

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetRefunds,
		[]string{"order_item_refund_id", "created_at", "order_item_id", "order_id", "refund_amount_usd"},
		[][]string{
			{"1", "2024-06-10 12:00:00", "2", "1", "19.99"},
		})

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetSessions,
		[]string{"website_session_id", "created_at", "user_id", "is_repeat_session", "utm_source", "utm_campaign", "utm_content", "device_type", "http_referer"},
		[][]string{
			{"1", "2024-06-01 10:00:00", "100", "0", "gsearch", "brand", "g_ad_1", "desktop", "https://gsearch.com"},
			{"2", "2024-06-02 11:00:00", "101", "1", "", "", "", "mobile", ""},
		})

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetPageviews,
		[]string{"website_pageview_id", "created_at", "website_session_id", "pageview_url"},
		[][]string{
			{"1", "2024-06-01 10:00:00", "1", "/home"},
			{"2", "2024-06-01 10:01:00", "1", "/products"},
			{"3", "2024-06-02 11:00:00", "2", "/home"},
		})
}

func newImporter(t *testing.T, dir string) *datasets.Importer {
	t.Helper()

	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	cfg := &config.Config{DataDirectory: dir}
	return datasets.NewImporter(dbManager, testsupport.GetLogger(), cfg)
}

func TestImportAll(t *testing.T) {
	dir := t.TempDir()
	writeAllFixtures(t, dir)

	importer := newImporter(t, dir)
	require.NoError(t, importer.ImportAll())

	db := testsupport.SetupTestDB(t)

	var order retail.Order
	require.NoError(t, db.First(&order, "order_id = ?", 1).Error)
	assert.Equal(t, 2024, order.Year)
	assert.Equal(t, 6, order.Month)
	assert.Equal(t, uint(1), order.WebsiteSessionID)
	assert.InDelta(t, 49.98, order.PriceUSD, 0.001)

	var itemCount int64
	require.NoError(t, db.Model(&retail.OrderItem{}).Count(&itemCount).Error)
	assert.Equal(t, int64(2), itemCount)

	var item retail.OrderItem
	require.NoError(t, db.First(&item, "order_item_id = ?", 2).Error)
	assert.False(t, item.IsPrimaryItem)

	var session traffic.WebsiteSession
	require.NoError(t, db.First(&session, "website_session_id = ?", 1).Error)
	assert.Equal(t, "brand", session.UTMCampaign)
	assert.Equal(t, "gsearch", session.UTMSource)
	assert.False(t, session.IsRepeatSession)

	var pageviewCount int64
	require.NoError(t, db.Model(&traffic.Pageview{}).Count(&pageviewCount).Error)
	assert.Equal(t, int64(3), pageviewCount)
}

func TestImportAllReplacesPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeAllFixtures(t, dir)

	importer := newImporter(t, dir)
	require.NoError(t, importer.ImportAll())

	// rewrite the order export with a single different order and reload
	testsupport.WriteCSVFixture(t, dir, datasets.DatasetOrders,
		[]string{"order_id", "created_at", "website_session_id", "user_id", "primary_product_id", "items_purchased", "price_usd", "cogs_usd"},
		[][]string{
			{"7", "2025-01-15 09:00:00", "2", "101", "2", "1", "19.99", "9.00"},
		})

	require.NoError(t, importer.ImportAll())

	db := testsupport.SetupTestDB(t)
	var orders []retail.Order
	require.NoError(t, db.Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, uint(7), orders[0].OrderID)
	assert.Equal(t, 2025, orders[0].Year)
}

func TestImportAllRejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeAllFixtures(t, dir)

	// drop the refund_amount_usd column
	testsupport.WriteCSVFixture(t, dir, datasets.DatasetRefunds,
		[]string{"order_item_refund_id", "created_at", "order_item_id", "order_id"},
		[][]string{
			{"1", "2024-06-10 12:00:00", "2", "1"},
		})

	importer := newImporter(t, dir)
	err := importer.ImportAll()
	require.Error(t, err)

	var missing *datasets.MissingDataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, datasets.DatasetRefunds, missing.Dataset)
	assert.Equal(t, "refund_amount_usd", missing.Column)
}

func TestImportAllRejectsMissingFile(t *testing.T) {
	importer := newImporter(t, t.TempDir())
	err := importer.ImportAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset file not found")
}

func TestImportAllRejectsBadTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeAllFixtures(t, dir)

	testsupport.WriteCSVFixture(t, dir, datasets.DatasetProducts,
		[]string{"product_id", "created_at", "product_name"},
		[][]string{
			{"1", "01/02/2023", "The Original Mr. Fuzzy"},
		})

	importer := newImporter(t, dir)
	err := importer.ImportAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid created_at")
}
