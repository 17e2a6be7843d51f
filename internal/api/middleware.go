package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	fibertrace "github.com/DataDog/dd-trace-go/contrib/gofiber/fiber.v2/v2"
	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// locals keys
const (
	localUser  = "user"
	localToken = "token"
)

// SetupMiddleware configures all middleware for the application
func SetupMiddleware(app *fiber.App, metrics *telemetry.Metrics) {
	// Request ID middleware, echoed back as X-Request-ID
	app.Use(requestid.New())

	// Recover middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "X-Request-ID",
	}))

	// DataDog APM spans, active when the agent is configured
	app.Use(fibertrace.Middleware(fibertrace.WithService("birb-baas-mock")))

	app.Use(telemetry.FiberLoggingMiddleware())
	app.Use(telemetry.FiberMetricsMiddleware(metrics))

	// Timing middleware
	app.Use(timingMiddleware())
}

// ErrorHandler renders every error as an ErrorResponse. Store errors are
// mapped to their HTTP status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	errCode := ErrCodeInternalError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, ErrNotFound):
		code = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, ErrConflict):
		code = fiber.StatusConflict
		message = err.Error()
	case errors.Is(err, ErrUnauthorized):
		code = fiber.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, ErrLocked):
		code = fiber.StatusForbidden
		message = err.Error()
	case errors.Is(err, ErrInvalidInput):
		code = fiber.StatusBadRequest
		message = err.Error()
	}

	switch code {
	case fiber.StatusNotFound:
		errCode = ErrCodeNotFound
	case fiber.StatusBadRequest:
		errCode = ErrCodeInvalidRequest
	case fiber.StatusConflict:
		errCode = ErrCodeConflict
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		errCode = ErrCodeUnauthorized
	case fiber.StatusRequestTimeout:
		errCode = ErrCodeTimeout
	case fiber.StatusTooManyRequests:
		errCode = ErrCodeRateLimited
	}

	if code >= fiber.StatusInternalServerError {
		telemetry.WithContext(c.UserContext()).WithError(err).WithFields(map[string]interface{}{
			"path":   c.Path(),
			"method": c.Method(),
		}).Error("Request failed")
	}

	return c.Status(code).JSON(NewErrorResponse(message, errCode))
}

// timingMiddleware adds request timing headers
func timingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		c.Set("X-Response-Time", fmt.Sprintf("%d ms", time.Since(start).Milliseconds()))
		return err
	}
}

// ValidateAPIKey rejects requests whose :apiKey path segment is not accepted
// by cfg.
func ValidateAPIKey(cfg *Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.AcceptsKey(c.Params("apiKey")) {
			return c.Status(fiber.StatusUnauthorized).JSON(
				NewErrorResponse("Invalid or missing API key", ErrCodeUnauthorized),
			)
		}
		return c.Next()
	}
}

// Authenticate resolves the Authorization header to a user. A token that is
// unknown or expired yields 401 so clients drop it. Anonymous requests pass
// through unless requireAuth is set.
func Authenticate(store *Store, requireAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			if requireAuth {
				return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
			}
			return c.Next()
		}

		user, err := store.Authenticate(c.Params("apiKey"), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(localUser, user)
		c.Locals(localToken, token)
		return c.Next()
	}
}

// bearerToken extracts the token of a "bearer <token>" header, matching the
// scheme case-insensitively.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUser(c *fiber.Ctx) *UserResponse {
	user, _ := c.Locals(localUser).(*UserResponse)
	return user
}
