package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/b2b-storefront-api/internal/application/ingest"
	"github.com/jhoicas/b2b-storefront-api/internal/application/usecase"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Roles del API interno.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ingest     *ingest.Service
	CartUC     *usecase.CartUseCase
	ActivityUC *usecase.ActivityLogUseCase
	Tenants    tenantLookup
	Health     *HealthHandler
	JWTSecret  string
	RateLimit  config.RateLimitConfig
	Limiters   RateLimitStorages
	Log        *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Health != nil {
		app.Get("/health", deps.Health.Live)
		app.Get("/health/ready", deps.Health.Ready)
	}

	// Superficie pública del storefront (sin auth, con límite de tasa)
	ingestHandler := NewIngestHandler(deps.Ingest, deps.Log)
	limited := RateLimit(deps.RateLimit, deps.Limiters, deps.Log)

	events := app.Group("/events", limited...)
	events.Post("/collect", ingestHandler.CollectEvent)

	carts := app.Group("/abandoned-carts", limited...)
	carts.Post("/track", ingestHandler.TrackCart)
	carts.Post("/sync", ingestHandler.SyncCart)

	// API interno de dashboards (Bearer Token, solo lectura)
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(RoleOwner, RoleAdmin, RoleAnalyst),
		RequireActiveTenant(deps.Tenants),
	)

	cartHandler := NewCartHandler(deps.CartUC)
	api.Get("/carts", cartHandler.List)
	api.Get("/carts/:id", cartHandler.GetByID)

	activityHandler := NewActivityLogHandler(deps.ActivityUC)
	api.Get("/activity-logs", activityHandler.List)
}
