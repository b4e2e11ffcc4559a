package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pixveil/pixveil/internal/access"
	"github.com/pixveil/pixveil/internal/cluster"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/events"
	"github.com/pixveil/pixveil/internal/handlers"
	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/middleware"
	"github.com/pixveil/pixveil/internal/presence"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, registry *presence.Registry,
	accessManager *access.Manager, leadership cluster.Leadership, bus events.Bus,
	cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, registry, accessManager, leadership, bus)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Status and health answer on every node, leader or not
	app.Get("/", h.Status)
	app.Get("/health", h.Health)

	// Registry routes
	app.Post("/register", h.Register)
	app.Post("/heartbeat", h.Heartbeat)
	app.Get("/users", h.Users)
	app.Get("/discover", h.Discover)

	// Photo routes (protected by API key when auth is enabled)
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	photo := app.Group("/photo", authMiddleware)

	photo.Post("/request/:requester", h.RequestAccess)
	photo.Get("/requests/:owner", h.PendingRequests)
	photo.Post("/approve/:owner", h.Decide)
	photo.Post("/view/:requester", h.View)
	photo.Get("/access/:requester", h.Grants)

	// Diagnostics
	app.Get("/debug/presence", h.DebugPresence)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, registry *presence.Registry, accessManager *access.Manager,
	leadership cluster.Leadership, bus events.Bus, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "PixVeil Node",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, registry, accessManager, leadership, bus, cfg)

	return app
}
