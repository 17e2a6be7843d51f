package api

import (
	"github.com/gofiber/fiber/v2"
)

// stream routes backed by the blob store
var streamRoutes = []string{"file-streams", "media-vault-streams"}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, handler *Handler, cfg *Config, store *Store) {
	// Health endpoint (no auth required)
	app.Get("/health", handler.Health)

	// Application routes, one namespace per API key
	v1 := app.Group("/v1/:apiKey", ValidateAPIKey(cfg))

	// Sign-in and account recovery run before token authentication so a
	// stale token cannot block a fresh login
	v1.Post("/login", handler.Login)
	v1.Get("/login", handler.CurrentUser)
	v1.Delete("/login", handler.Logout)
	v1.Post("/register", handler.Register)
	v1.Put("/register/activate/:code", handler.Activate)
	v1.Post("/recover-password", handler.RecoverPassword)
	v1.Put("/recover-password", handler.ResetPassword)

	v1.Use(Authenticate(store, cfg.RequireAuth))

	for _, route := range streamRoutes {
		v1.Post("/"+route+"/*", handler.UploadStream(route))
		v1.Get("/"+route+"/*", handler.DownloadStream(route))
		v1.Delete("/"+route+"/*", handler.DeleteStream(route))
	}

	// Everything else is a generic module resource
	v1.All("/*", handler.Resource)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "birb-baas-mock",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": fiber.Map{
				"login":     "POST|GET|DELETE /v1/:apiKey/login",
				"register":  "POST /v1/:apiKey/register",
				"streams":   "POST|GET|DELETE /v1/:apiKey/file-streams/*",
				"resources": "GET|POST|PUT|DELETE /v1/:apiKey/*",
				"health":    "GET /health",
				"metrics":   "GET " + cfg.MetricsPath,
			},
		})
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("Endpoint not found", ErrCodeNotFound),
		)
	})
}
