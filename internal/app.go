// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"toylytics/internal/config"
	"toylytics/internal/database"
	"toylytics/internal/datasets"
	"toylytics/internal/funnel"
)

// Application wraps cartridge.Application with toylytics-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // toylytics-specific DB manager with migration methods
	Importer  *datasets.Importer
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// validateFunnelMapping checks a configured mapping override at startup so a
// broken file surfaces immediately instead of on the first funnel request.
func validateFunnelMapping(cfg *config.Config) error {
	if cfg.FunnelMapPath == "" {
		return nil
	}
	if _, err := funnel.LoadFile(cfg.FunnelMapPath); err != nil {
		return fmt.Errorf("invalid funnel stage mapping: %w", err)
	}
	return nil
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	if err := validateFunnelMapping(cfg); err != nil {
		return nil, err
	}

	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:         cfg,
		Logger:         logger,
		DBManager:      dbManager,
		RouteMountFunc: MountAppRoutes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Importer:    datasets.NewImporter(dbManager, logger, cfg),
	}, nil
}
