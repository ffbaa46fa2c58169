package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"toylytics/internal/config"
	"toylytics/internal/datasets"
)

// ReloadResponse reports the outcome of a dataset reload.
type ReloadResponse struct {
	Status string `json:"status"`
}

// ReloadDatasetsAction handles POST /api/v1/datasets/reload. It replaces the
// snapshot with the current CSV exports. The reload runs in one transaction,
// so concurrent dashboard reads keep seeing the previous snapshot until it
// commits.
func ReloadDatasetsAction(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	importer := datasets.NewImporter(ctx.DBManager, ctx.Logger, cfg)

	if err := importer.ImportAll(); err != nil {
		var missing *datasets.MissingDataError
		if errors.As(err, &missing) {
			ctx.Logger.Error("Dataset reload rejected", slog.Any("error", err))
			return ctx.Status(fiber.StatusUnprocessableEntity).SendString(err.Error())
		}
		ctx.Logger.Error("Dataset reload failed", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Dataset reload failed")
	}

	return ctx.JSON(ReloadResponse{Status: "ok"})
}
