package main

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/tochka-pay/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/tochka-pay/internal/ports"
	"github.com/seu-repo/tochka-pay/internal/service/health"
	"github.com/seu-repo/tochka-pay/pkg/config"
)

// newApp builds the HTTP surface. Only /api/v1 requires an API key.
func newApp(cfg *config.Config, registry ports.ProviderRegistry, publisher ports.EventPublisher, healthService *health.Service, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	// Health Check Endpoints
	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	// Gateway notifications
	handlers.NewWebhookHandler(registry, publisher, logger).RegisterRoutes(app)

	// API v1 Routes
	v1 := app.Group("/api/v1")
	if cfg.CORS.Enabled {
		v1.Use(middleware.NewCORS(cfg.CORS))
	}
	v1.Use(middleware.CircuitBreaker(cfg.App.Name+"-api", logger))
	if len(cfg.HTTP.APIKeys) > 0 {
		v1.Use(middleware.APIKeyRequired(cfg.HTTP.APIKeys))
	} else {
		logger.Warn("No API keys configured, payment API is unauthenticated")
	}
	handlers.NewPaymentHandler(registry, logger).RegisterRoutes(v1)

	return app
}
