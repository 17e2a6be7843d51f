package api

import (
	"time"

	"github.com/birbparty/birb-baas/internal/storage"
	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// NewApp assembles the mock BaaS server. The returned store is the state
// behind every route.
func NewApp(cfg *Config, blobs storage.BlobStore, metrics *telemetry.Metrics) (*fiber.App, *Store) {
	app := fiber.New(fiber.Config{
		AppName:      "birb-baas-mock",
		ErrorHandler: ErrorHandler,
		ReadTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		BodyLimit:    16 * 1024 * 1024,
		IdleTimeout:  120 * time.Second,

		DisableStartupMessage: true,
	})

	store := NewStore()
	handler := NewHandler(cfg, store, blobs, metrics)

	if cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(telemetry.PrometheusHandler()))
	}

	SetupMiddleware(app, metrics)
	SetupRoutes(app, handler, cfg, store)

	return app, store
}
