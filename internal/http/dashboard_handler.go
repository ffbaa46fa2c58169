package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"toylytics/internal/analytics"
	"toylytics/internal/config"
	"toylytics/internal/filters"
	"toylytics/internal/funnel"
	"toylytics/internal/pkg/async"
)

// Each dashboard view fans its independent metric queries out over a small
// worker pool. A failed metric is logged and rendered as its zero value so
// one broken query never blanks the whole view.

type SalesViewResponse struct {
	Metrics          *analytics.SalesMetrics   `json:"metrics"`
	RevenueByYear    []analytics.YearRevenue   `json:"revenue_by_year"`
	RevenueByProduct []analytics.CategoryValue `json:"revenue_by_product"`
}

type ProductsViewResponse struct {
	Metrics             *analytics.ProductMetrics     `json:"metrics"`
	RevenueByProduct    []analytics.CategoryValue     `json:"revenue_by_product"`
	ConversionByProduct []analytics.ProductConversion `json:"conversion_by_product"`
}

type MarketingViewResponse struct {
	Metrics           *analytics.MarketingMetrics `json:"metrics"`
	RevenueByCampaign []analytics.CategoryValue   `json:"revenue_by_campaign"`
	RevenueBySource   []analytics.CategoryValue   `json:"revenue_by_source"`
}

type WebsiteViewResponse struct {
	Metrics               *analytics.WebsiteMetrics     `json:"metrics"`
	MonthlyBounceRate     []analytics.MonthRate         `json:"monthly_bounce_rate"`
	MonthlyConversionRate []analytics.MonthRate         `json:"monthly_conversion_rate"`
	SessionsByDevice      []analytics.MetricCountResult `json:"sessions_by_device"`
}

type FunnelViewResponse struct {
	Stages []analytics.FunnelStageCount `json:"stages"`
}

type FilterOptionsResponse struct {
	AllValue string          `json:"all_value"`
	Options  filters.Options `json:"options"`
}

// stage mapping is loaded once per process; an override file is configuration,
// not per-request state. A failed load is never cached, so a transient read
// error heals on the next request instead of pinning every funnel view to 500.
var (
	stageMappingMu  sync.Mutex
	stageMappingVal *funnel.Mapping
)

func stageMapping() (*funnel.Mapping, error) {
	stageMappingMu.Lock()
	defer stageMappingMu.Unlock()

	if stageMappingVal != nil {
		return stageMappingVal, nil
	}

	cfg := config.GetConfig()
	if cfg.FunnelMapPath == "" {
		stageMappingVal = funnel.Default()
		return stageMappingVal, nil
	}

	mapping, err := funnel.LoadFile(cfg.FunnelMapPath)
	if err != nil {
		return nil, err
	}
	stageMappingVal = mapping
	return stageMappingVal, nil
}

// parseParams builds query params from the request's filter query values.
func parseParams(ctx *cartridge.Context) (analytics.QueryParams, error) {
	sel, err := filters.ParseSelection(
		ctx.Query("year"),
		ctx.Query("month"),
		ctx.Query("campaign"),
		ctx.Query("source"),
		ctx.Query("device"),
	)
	if err != nil {
		return analytics.QueryParams{}, err
	}

	params := analytics.NewQueryParams(sel)
	params.ConversionDenominator = config.GetConfig().ConversionDenominator
	return params, nil
}

// SalesViewAction handles GET /api/v1/dashboard/sales
func SalesViewAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	db := ctx.DB()
	tasks := []async.Task{
		{
			Name: "metrics",
			Execute: func() (interface{}, error) {
				return analytics.GetSalesMetrics(db, params)
			},
		},
		{
			Name: "revenueByYear",
			Execute: func() (interface{}, error) {
				return analytics.GetRevenueByYear(db, params)
			},
		},
		{
			Name: "revenueByProduct",
			Execute: func() (interface{}, error) {
				return analytics.GetRevenueByProduct(db, params)
			},
		},
	}

	results := async.NewPool(3).Execute(context.Background(), tasks)
	logFailures(ctx.Logger, "sales", results)

	resp := SalesViewResponse{
		Metrics:          &analytics.SalesMetrics{},
		RevenueByYear:    []analytics.YearRevenue{},
		RevenueByProduct: []analytics.CategoryValue{},
	}
	if m, ok := results["metrics"].Data.(*analytics.SalesMetrics); ok && m != nil {
		resp.Metrics = m
	}
	if series, ok := results["revenueByYear"].Data.([]analytics.YearRevenue); ok && series != nil {
		resp.RevenueByYear = series
	}
	if series, ok := results["revenueByProduct"].Data.([]analytics.CategoryValue); ok && series != nil {
		resp.RevenueByProduct = series
	}

	return ctx.JSON(resp)
}

// ProductsViewAction handles GET /api/v1/dashboard/products
func ProductsViewAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	db := ctx.DB()
	tasks := []async.Task{
		{
			Name: "metrics",
			Execute: func() (interface{}, error) {
				return analytics.GetProductMetrics(db, params)
			},
		},
		{
			Name: "revenueByProduct",
			Execute: func() (interface{}, error) {
				return analytics.GetRevenueByProduct(db, params)
			},
		},
		{
			Name: "conversionByProduct",
			Execute: func() (interface{}, error) {
				return analytics.GetConversionRateByProduct(db, params)
			},
		},
	}

	results := async.NewPool(3).Execute(context.Background(), tasks)
	logFailures(ctx.Logger, "products", results)

	resp := ProductsViewResponse{
		Metrics:             &analytics.ProductMetrics{TopProduct: analytics.NoProductSold},
		RevenueByProduct:    []analytics.CategoryValue{},
		ConversionByProduct: []analytics.ProductConversion{},
	}
	if m, ok := results["metrics"].Data.(*analytics.ProductMetrics); ok && m != nil {
		resp.Metrics = m
	}
	if series, ok := results["revenueByProduct"].Data.([]analytics.CategoryValue); ok && series != nil {
		resp.RevenueByProduct = series
	}
	if series, ok := results["conversionByProduct"].Data.([]analytics.ProductConversion); ok && series != nil {
		resp.ConversionByProduct = series
	}

	return ctx.JSON(resp)
}

// MarketingViewAction handles GET /api/v1/dashboard/marketing
func MarketingViewAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	db := ctx.DB()
	tasks := []async.Task{
		{
			Name: "metrics",
			Execute: func() (interface{}, error) {
				return analytics.GetMarketingMetrics(db, params)
			},
		},
		{
			Name: "revenueByCampaign",
			Execute: func() (interface{}, error) {
				return analytics.GetRevenueByCampaign(db, params)
			},
		},
		{
			Name: "revenueBySource",
			Execute: func() (interface{}, error) {
				return analytics.GetRevenueBySource(db, params)
			},
		},
	}

	results := async.NewPool(3).Execute(context.Background(), tasks)
	logFailures(ctx.Logger, "marketing", results)

	resp := MarketingViewResponse{
		Metrics:           &analytics.MarketingMetrics{},
		RevenueByCampaign: []analytics.CategoryValue{},
		RevenueBySource:   []analytics.CategoryValue{},
	}
	if m, ok := results["metrics"].Data.(*analytics.MarketingMetrics); ok && m != nil {
		resp.Metrics = m
	}
	if series, ok := results["revenueByCampaign"].Data.([]analytics.CategoryValue); ok && series != nil {
		resp.RevenueByCampaign = series
	}
	if series, ok := results["revenueBySource"].Data.([]analytics.CategoryValue); ok && series != nil {
		resp.RevenueBySource = series
	}

	return ctx.JSON(resp)
}

// WebsiteViewAction handles GET /api/v1/dashboard/website
func WebsiteViewAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	db := ctx.DB()
	tasks := []async.Task{
		{
			Name: "metrics",
			Execute: func() (interface{}, error) {
				return analytics.GetWebsiteMetrics(db, params)
			},
		},
		{
			Name: "monthlyBounceRate",
			Execute: func() (interface{}, error) {
				return analytics.GetMonthlyBounceRate(db, params)
			},
		},
		{
			Name: "monthlyConversionRate",
			Execute: func() (interface{}, error) {
				return analytics.GetMonthlyConversionRate(db, params)
			},
		},
		{
			Name: "sessionsByDevice",
			Execute: func() (interface{}, error) {
				stats, err := analytics.GetSessionsByDevice(db, params)
				if err != nil {
					return nil, err
				}
				return convertDeviceCounts(stats), nil
			},
		},
	}

	results := async.NewPool(4).Execute(context.Background(), tasks)
	logFailures(ctx.Logger, "website", results)

	resp := WebsiteViewResponse{
		Metrics:               &analytics.WebsiteMetrics{},
		MonthlyBounceRate:     []analytics.MonthRate{},
		MonthlyConversionRate: []analytics.MonthRate{},
		SessionsByDevice:      []analytics.MetricCountResult{},
	}
	if m, ok := results["metrics"].Data.(*analytics.WebsiteMetrics); ok && m != nil {
		resp.Metrics = m
	}
	if series, ok := results["monthlyBounceRate"].Data.([]analytics.MonthRate); ok && series != nil {
		resp.MonthlyBounceRate = series
	}
	if series, ok := results["monthlyConversionRate"].Data.([]analytics.MonthRate); ok && series != nil {
		resp.MonthlyConversionRate = series
	}
	if series, ok := results["sessionsByDevice"].Data.([]analytics.MetricCountResult); ok && series != nil {
		resp.SessionsByDevice = series
	}

	return ctx.JSON(resp)
}

// FunnelViewAction handles GET /api/v1/dashboard/funnel
func FunnelViewAction(ctx *cartridge.Context) error {
	params, err := parseParams(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	mapping, err := stageMapping()
	if err != nil {
		ctx.Logger.Error("Failed to load funnel stage mapping", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Invalid funnel stage mapping")
	}

	stages, err := analytics.GetFunnelStages(ctx.DB(), params, mapping)
	if err != nil {
		ctx.Logger.Error("Error fetching funnel stages", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Error fetching funnel stages")
	}

	return ctx.JSON(FunnelViewResponse{Stages: stages})
}

// FilterOptionsAction handles GET /api/v1/dashboard/filters. It returns the
// distinct filter values present in the snapshot; the frontend prepends the
// "All" sentinel itself using the all_value field.
func FilterOptionsAction(ctx *cartridge.Context) error {
	options, err := filters.GetOptions(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Error fetching filter options", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Error fetching filter options")
	}

	return ctx.JSON(FilterOptionsResponse{
		AllValue: filters.AllValue,
		Options:  *options,
	})
}

// logFailures logs every failed task of a view fan-out. Failed metrics render
// as zero values rather than failing the view.
func logFailures(logger *slog.Logger, view string, results map[string]async.Result) {
	for name, result := range results {
		if result.Err != nil {
			logger.Error("Dashboard metric failed",
				slog.String("view", view),
				slog.String("metric", name),
				slog.Any("error", result.Err))
		}
	}
}

// convertDeviceCounts title-cases device names for display.
func convertDeviceCounts(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	caser := cases.Title(language.AmericanEnglish)

	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		result[i] = analytics.MetricCountResult{
			Name:  caser.String(item.Name),
			Count: item.Count,
		}
	}
	return result
}
