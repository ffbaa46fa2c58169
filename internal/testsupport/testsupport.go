package testsupport

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"toylytics/internal"
	"toylytics/internal/config"
	"toylytics/internal/retail"
	"toylytics/internal/traffic"
)

// testDBCache caches test databases by test name so multiple setup calls
// within the same test share one database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with toylytics' interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all snapshot models for migration
func allModels() []any {
	return []any{
		&retail.Order{},
		&retail.OrderItem{},
		&retail.Product{},
		&retail.Refund{},
		&traffic.WebsiteSession{},
		&traffic.Pageview{},
	}
}

// SetupTestDB creates a test database with the snapshot schema migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching so subtests created via t.Run share
	// the database their outer setup created
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set TOYLYTICS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateOrder inserts an order, deriving the year/month columns from the
// created-at timestamp the same way the importer does.
func CreateOrder(t *testing.T, db *gorm.DB, id, sessionID, userID uint, createdAt time.Time, priceUSD float64) retail.Order {
	t.Helper()

	order := retail.Order{
		OrderID:          id,
		CreatedAt:        createdAt,
		Year:             createdAt.Year(),
		Month:            int(createdAt.Month()),
		WebsiteSessionID: sessionID,
		UserID:           userID,
		PrimaryProductID: 1,
		ItemsPurchased:   1,
		PriceUSD:         priceUSD,
		CogsUSD:          priceUSD / 2,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

// CreateOrderItem inserts a single purchased unit for an order.
func CreateOrderItem(t *testing.T, db *gorm.DB, id, orderID, productID uint, priceUSD float64) retail.OrderItem {
	t.Helper()

	item := retail.OrderItem{
		OrderItemID:   id,
		CreatedAt:     time.Now().UTC(),
		OrderID:       orderID,
		ProductID:     productID,
		IsPrimaryItem: true,
		PriceUSD:      priceUSD,
		CogsUSD:       priceUSD / 2,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// CreateProduct inserts a catalog entry.
func CreateProduct(t *testing.T, db *gorm.DB, id uint, name string) retail.Product {
	t.Helper()

	product := retail.Product{
		ProductID:   id,
		CreatedAt:   time.Now().UTC(),
		ProductName: name,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

// CreateRefund inserts a refund row for an order item.
func CreateRefund(t *testing.T, db *gorm.DB, id, orderItemID, orderID uint, amountUSD float64) retail.Refund {
	t.Helper()

	refund := retail.Refund{
		OrderItemRefundID: id,
		CreatedAt:         time.Now().UTC(),
		OrderItemID:       orderItemID,
		OrderID:           orderID,
		RefundAmountUSD:   amountUSD,
	}
	require.NoError(t, db.Create(&refund).Error)
	return refund
}

// CreateSession inserts a website session with the given UTM attribution.
func CreateSession(t *testing.T, db *gorm.DB, id, userID uint, createdAt time.Time, campaign, source, device string) traffic.WebsiteSession {
	t.Helper()

	session := traffic.WebsiteSession{
		WebsiteSessionID: id,
		CreatedAt:        createdAt,
		UserID:           userID,
		UTMCampaign:      campaign,
		UTMSource:        source,
		DeviceType:       device,
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

// CreatePageview inserts a pageview for a session.
func CreatePageview(t *testing.T, db *gorm.DB, id, sessionID uint, url string, createdAt time.Time) traffic.Pageview {
	t.Helper()

	pageview := traffic.Pageview{
		WebsitePageviewID: id,
		CreatedAt:         createdAt,
		WebsiteSessionID:  sessionID,
		PageviewURL:       url,
	}
	require.NoError(t, db.Create(&pageview).Error)
	return pageview
}

// WriteCSVFixture writes a CSV file with the given header and rows into dir
// and returns its path. The filename must match the dataset name the importer
// expects.
func WriteCSVFixture(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name+".csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := csv.NewWriter(file)
	require.NoError(t, writer.Write(header))
	for _, row := range rows {
		require.NoError(t, writer.Write(row))
	}
	writer.Flush()
	require.NoError(t, writer.Error())

	return path
}

// CreateMinimalTestApp creates a test Fiber app with all routes mounted
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}
