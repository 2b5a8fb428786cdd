package identify

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/config"
)

// RegisterRoutes registers the routes for the identify feature.
func RegisterRoutes(app *fiber.App, service *Service, cfg *config.Manager, policy access.AccessPolicy, quota access.QuotaPolicy) {
	handler := NewHandler(service, cfg, policy, quota)

	app.Post("/identify", handler.Identify)
	app.Post("/cache/clear", handler.ClearCache)
}
