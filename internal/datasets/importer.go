package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"toylytics/internal/config"
	"toylytics/internal/retail"
	"toylytics/internal/traffic"
)

const (
	insertBatchSize = 500
	timestampLayout = "2006-01-02 15:04:05"
)

// DBConnection is the slice of the database manager the importer needs. Both
// the production manager and the test manager satisfy it.
type DBConnection interface {
	GetConnection() *gorm.DB
}

// Importer loads the CSV exports into the snapshot database.
type Importer struct {
	dbManager DBConnection
	logger    *slog.Logger
	cfg       *config.Config
}

// NewImporter creates an importer over the given database manager.
func NewImporter(dbManager DBConnection, logger *slog.Logger, cfg *config.Config) *Importer {
	return &Importer{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// ImportAll replaces the snapshot with the current contents of the six CSV
// exports. The truncate and all inserts run in one transaction, so readers
// never observe a half-loaded snapshot.
func (i *Importer) ImportAll() error {
	paths := make(map[string]string, len(requiredColumns))
	for _, dataset := range []string{
		DatasetOrders, DatasetOrderItems, DatasetProducts,
		DatasetRefunds, DatasetSessions, DatasetPageviews,
	} {
		path, err := i.resolveDataset(dataset)
		if err != nil {
			return err
		}
		paths[dataset] = path
	}

	db := i.dbManager.GetConnection()
	start := time.Now()

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{
			"order_item_refunds", "order_items", "orders",
			"products", "website_pageviews", "website_sessions",
		} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}

		if err := i.importProducts(tx, paths[DatasetProducts]); err != nil {
			return err
		}
		if err := i.importOrders(tx, paths[DatasetOrders]); err != nil {
			return err
		}
		if err := i.importOrderItems(tx, paths[DatasetOrderItems]); err != nil {
			return err
		}
		if err := i.importRefunds(tx, paths[DatasetRefunds]); err != nil {
			return err
		}
		if err := i.importSessions(tx, paths[DatasetSessions]); err != nil {
			return err
		}
		return i.importPageviews(tx, paths[DatasetPageviews])
	})
	if err != nil {
		return err
	}

	// The production manager runs in WAL mode; checkpoint so the imported
	// snapshot lands in the main database file.
	if cp, ok := i.dbManager.(interface{ CheckpointWAL(string) error }); ok {
		if err := cp.CheckpointWAL("FULL"); err != nil {
			i.logger.Warn("WAL checkpoint after import failed", slog.Any("error", err))
		}
	}

	i.logger.Info("Dataset import completed",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// resolveDataset returns the local path of a dataset's CSV file, downloading
// it first when a remote URL is configured and no local copy exists. Only the
// session and pageview exports are large enough to warrant remote hosting.
func (i *Importer) resolveDataset(dataset string) (string, error) {
	path := filepath.Join(i.cfg.DataDirectory, dataset+".csv")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	url := ""
	switch dataset {
	case DatasetSessions:
		url = i.cfg.SessionsURL
	case DatasetPageviews:
		url = i.cfg.PageviewsURL
	}
	if url == "" {
		return "", fmt.Errorf("dataset file not found: %s", path)
	}

	i.logger.Info("Downloading dataset",
		slog.String("dataset", dataset),
		slog.String("url", url))

	if err := i.download(url, path); err != nil {
		return "", fmt.Errorf("failed to download dataset %s: %w", dataset, err)
	}
	return path, nil
}

func (i *Importer) download(url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), "dataset-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to save download: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempFile.Name(), destPath)
}

// record is one CSV data row with column access by header name.
type record struct {
	dataset string
	line    int
	columns map[string]int
	fields  []string
}

func (r record) get(column string) string {
	return strings.TrimSpace(r.fields[r.columns[column]])
}

func (r record) uintVal(column string) (uint, error) {
	v, err := strconv.ParseUint(r.get(column), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dataset %s line %d: invalid %s: %w", r.dataset, r.line, column, err)
	}
	return uint(v), nil
}

func (r record) intVal(column string) (int, error) {
	v, err := strconv.Atoi(r.get(column))
	if err != nil {
		return 0, fmt.Errorf("dataset %s line %d: invalid %s: %w", r.dataset, r.line, column, err)
	}
	return v, nil
}

func (r record) floatVal(column string) (float64, error) {
	v, err := strconv.ParseFloat(r.get(column), 64)
	if err != nil {
		return 0, fmt.Errorf("dataset %s line %d: invalid %s: %w", r.dataset, r.line, column, err)
	}
	return v, nil
}

func (r record) boolVal(column string) (bool, error) {
	switch r.get(column) {
	case "0", "":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("dataset %s line %d: invalid %s: expected 0 or 1", r.dataset, r.line, column)
}

func (r record) timeVal(column string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, r.get(column))
	if err != nil {
		return time.Time{}, fmt.Errorf("dataset %s line %d: invalid %s: %w", r.dataset, r.line, column, err)
	}
	return t, nil
}

// forEachRecord streams a dataset's CSV file, validating the header against
// the dataset's required columns before the first data row is yielded.
func forEachRecord(dataset, path string, fn func(record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset %s: %w", dataset, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of dataset %s: %w", dataset, err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, required := range requiredColumns[dataset] {
		if _, ok := columns[required]; !ok {
			return &MissingDataError{Dataset: dataset, Column: required}
		}
	}

	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read dataset %s: %w", dataset, err)
		}
		line++

		if err := fn(record{dataset: dataset, line: line, columns: columns, fields: fields}); err != nil {
			return err
		}
	}
}

func (i *Importer) importOrders(tx *gorm.DB, path string) error {
	batch := make([]retail.Order, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetOrders, path, func(r record) error {
		order := retail.Order{}
		var err error

		if order.OrderID, err = r.uintVal("order_id"); err != nil {
			return err
		}
		if order.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}
		if order.WebsiteSessionID, err = r.uintVal("website_session_id"); err != nil {
			return err
		}
		if order.UserID, err = r.uintVal("user_id"); err != nil {
			return err
		}
		if order.PrimaryProductID, err = r.uintVal("primary_product_id"); err != nil {
			return err
		}
		if order.ItemsPurchased, err = r.intVal("items_purchased"); err != nil {
			return err
		}
		if order.PriceUSD, err = r.floatVal("price_usd"); err != nil {
			return err
		}
		if order.CogsUSD, err = r.floatVal("cogs_usd"); err != nil {
			return err
		}
		order.Year = order.CreatedAt.Year()
		order.Month = int(order.CreatedAt.Month())

		batch = append(batch, order)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert orders: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert orders: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetOrders),
		slog.Int("rows", count))
	return nil
}

func (i *Importer) importOrderItems(tx *gorm.DB, path string) error {
	batch := make([]retail.OrderItem, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetOrderItems, path, func(r record) error {
		item := retail.OrderItem{}
		var err error

		if item.OrderItemID, err = r.uintVal("order_item_id"); err != nil {
			return err
		}
		if item.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}
		if item.OrderID, err = r.uintVal("order_id"); err != nil {
			return err
		}
		if item.ProductID, err = r.uintVal("product_id"); err != nil {
			return err
		}
		if item.IsPrimaryItem, err = r.boolVal("is_primary_item"); err != nil {
			return err
		}
		if item.PriceUSD, err = r.floatVal("price_usd"); err != nil {
			return err
		}
		if item.CogsUSD, err = r.floatVal("cogs_usd"); err != nil {
			return err
		}

		batch = append(batch, item)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetOrderItems),
		slog.Int("rows", count))
	return nil
}

func (i *Importer) importProducts(tx *gorm.DB, path string) error {
	batch := make([]retail.Product, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetProducts, path, func(r record) error {
		product := retail.Product{ProductName: r.get("product_name")}
		var err error

		if product.ProductID, err = r.uintVal("product_id"); err != nil {
			return err
		}
		if product.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}

		batch = append(batch, product)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert products: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetProducts),
		slog.Int("rows", count))
	return nil
}

func (i *Importer) importRefunds(tx *gorm.DB, path string) error {
	batch := make([]retail.Refund, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetRefunds, path, func(r record) error {
		refund := retail.Refund{}
		var err error

		if refund.OrderItemRefundID, err = r.uintVal("order_item_refund_id"); err != nil {
			return err
		}
		if refund.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}
		if refund.OrderItemID, err = r.uintVal("order_item_id"); err != nil {
			return err
		}
		if refund.OrderID, err = r.uintVal("order_id"); err != nil {
			return err
		}
		if refund.RefundAmountUSD, err = r.floatVal("refund_amount_usd"); err != nil {
			return err
		}

		batch = append(batch, refund)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert refunds: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert refunds: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetRefunds),
		slog.Int("rows", count))
	return nil
}

func (i *Importer) importSessions(tx *gorm.DB, path string) error {
	batch := make([]traffic.WebsiteSession, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetSessions, path, func(r record) error {
		session := traffic.WebsiteSession{
			UTMSource:   r.get("utm_source"),
			UTMCampaign: r.get("utm_campaign"),
			UTMContent:  r.get("utm_content"),
			DeviceType:  r.get("device_type"),
			HTTPReferer: r.get("http_referer"),
		}
		var err error

		if session.WebsiteSessionID, err = r.uintVal("website_session_id"); err != nil {
			return err
		}
		if session.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}
		if session.UserID, err = r.uintVal("user_id"); err != nil {
			return err
		}
		if session.IsRepeatSession, err = r.boolVal("is_repeat_session"); err != nil {
			return err
		}

		batch = append(batch, session)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert sessions: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert sessions: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetSessions),
		slog.Int("rows", count))
	return nil
}

func (i *Importer) importPageviews(tx *gorm.DB, path string) error {
	batch := make([]traffic.Pageview, 0, insertBatchSize)
	count := 0

	err := forEachRecord(DatasetPageviews, path, func(r record) error {
		pageview := traffic.Pageview{PageviewURL: r.get("pageview_url")}
		var err error

		if pageview.WebsitePageviewID, err = r.uintVal("website_pageview_id"); err != nil {
			return err
		}
		if pageview.CreatedAt, err = r.timeVal("created_at"); err != nil {
			return err
		}
		if pageview.WebsiteSessionID, err = r.uintVal("website_session_id"); err != nil {
			return err
		}

		batch = append(batch, pageview)
		count++
		if len(batch) == insertBatchSize {
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert pageviews: %w", err)
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert pageviews: %w", err)
		}
	}

	i.logger.Debug("Imported dataset",
		slog.String("dataset", DatasetPageviews),
		slog.Int("rows", count))
	return nil
}
