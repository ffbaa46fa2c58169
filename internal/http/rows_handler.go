package http

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"toylytics/internal/filters"
	"toylytics/internal/retail"
	"toylytics/internal/traffic"
)

// Raw-row previews back the dashboard's data tables: the filtered subset
// behind the aggregations, capped so a full snapshot never streams out.
const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

type FilteredOrdersResponse struct {
	TotalRows int            `json:"total_rows"`
	Rows      []retail.Order `json:"rows"`
}

type FilteredSessionsResponse struct {
	TotalRows int                      `json:"total_rows"`
	Rows      []traffic.WebsiteSession `json:"rows"`
}

func parseRowLimit(ctx *cartridge.Context) (int, error) {
	raw := ctx.Query("limit")
	if raw == "" {
		return defaultRowLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}
	return limit, nil
}

// FilteredOrdersAction handles GET /api/v1/dashboard/orders
func FilteredOrdersAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	limit, err := parseRowLimit(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	orders, err := filters.FilterOrders(ctx.DB(), params.Selection)
	if err != nil {
		ctx.Logger.Error("Error fetching filtered orders", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Error fetching filtered orders")
	}

	total := len(orders)
	if total > limit {
		orders = orders[:limit]
	}
	return ctx.JSON(FilteredOrdersResponse{TotalRows: total, Rows: orders})
}

// FilteredSessionsAction handles GET /api/v1/dashboard/sessions
func FilteredSessionsAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	limit, err := parseRowLimit(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	sessions, err := filters.FilterSessions(ctx.DB(), params.Selection)
	if err != nil {
		ctx.Logger.Error("Error fetching filtered sessions", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Error fetching filtered sessions")
	}

	total := len(sessions)
	if total > limit {
		sessions = sessions[:limit]
	}
	return ctx.JSON(FilteredSessionsResponse{TotalRows: total, Rows: sessions})
}
