package http

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"toylytics/internal/retail"
	"toylytics/internal/traffic"
)

// HealthStatus reports service liveness plus the size of the loaded snapshot.
type HealthStatus struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	DBStatus         string    `json:"db_status"`
	SnapshotOrders   int64     `json:"snapshot_orders"`
	SnapshotSessions int64     `json:"snapshot_sessions"`
}

// HealthIndexAction handles the health check endpoint. The row counts make an
// empty or never-imported snapshot visible without hitting the dashboard.
func HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"
	var orders, sessions int64

	db := ctx.DBManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection error", slog.Any("error", err))
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database ping failed", slog.Any("error", err))
		}
	}

	if dbStatus == "ok" {
		if err := db.Model(&retail.Order{}).Count(&orders).Error; err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Failed to count snapshot orders", slog.Any("error", err))
		}
		if err := db.Model(&traffic.WebsiteSession{}).Count(&sessions).Error; err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Failed to count snapshot sessions", slog.Any("error", err))
		}
	}

	health := HealthStatus{
		Status:           "ok",
		Timestamp:        time.Now(),
		DBStatus:         dbStatus,
		SnapshotOrders:   orders,
		SnapshotSessions: sessions,
	}

	if dbStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.JSON(health)
}
