package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"toylytics/internal/config"
	"toylytics/internal/http"
)

// publicCORSConfig returns the standard CORS configuration for the dashboard
// API. The dashboard frontend is served separately, so reads are cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Dashboard reads are cheap aggregation queries; 120/min per IP leaves
	// plenty of room for a polling frontend while capping abuse
	dashboardRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Reloads rewrite the whole snapshot; keep them rare
	reloadRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(2),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	dashboardConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{dashboardRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	reloadConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{reloadRateLimiter},
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === DASHBOARD API ROUTES ===
	srv.Get("/api/v1/dashboard/filters", http.FilterOptionsAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/sales", http.SalesViewAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/products", http.ProductsViewAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/marketing", http.MarketingViewAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/website", http.WebsiteViewAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/funnel", http.FunnelViewAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/orders", http.FilteredOrdersAction, dashboardConfig)
	srv.Get("/api/v1/dashboard/sessions", http.FilteredSessionsAction, dashboardConfig)
	srv.Options("/api/v1/dashboard/*", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, dashboardConfig)

	// === SNAPSHOT MANAGEMENT ===
	srv.Post("/api/v1/datasets/reload", http.ReloadDatasetsAction, reloadConfig)
}
