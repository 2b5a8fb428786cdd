package hosting

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/config"
)

// openPaths are reachable without an API key.
var openPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AuthMiddleware resolves the caller from its API key and stores the
// service user in the request locals. With no users configured, every
// request runs as the anonymous user and nothing is rejected here; the
// access policy downstream decides what anonymous may do.
func AuthMiddleware(cfg *config.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if openPaths[c.Path()] {
			return c.Next()
		}

		users := cfg.Get().Users
		if len(users) == 0 {
			c.Locals("user", access.Anonymous())
			return c.Next()
		}

		key := apiKey(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing API key"})
		}
		for _, u := range users {
			if u.APIKey != "" && u.APIKey == key {
				c.Locals("user", access.NewServiceUser(u.ID, u.Roles, u.Features, u.QuotaLimits))
				return c.Next()
			}
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown API key"})
	}
}

// apiKey reads the key from X-API-Key or a bearer Authorization header.
func apiKey(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// LogAllRequestsMiddleware logs every request with its outcome.
func LogAllRequestsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		if status >= 400 {
			slog.Error("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
				"error", err,
			)
		} else {
			slog.Debug("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
			)
		}
		return err
	}
}
