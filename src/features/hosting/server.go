package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/batch"
	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/identify"
	"github.com/lunefort/tuneid/src/features/jobs"
	"github.com/lunefort/tuneid/src/features/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates the HTTP server and wires every feature's routes.
func NewServer(
	cfg *config.Manager,
	identifyService *identify.Service,
	jobService *jobs.Service,
	policy access.AccessPolicy,
	quota access.QuotaPolicy,
	gatherer prometheus.Gatherer,
) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Tuneid",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())
	app.Use(AuthMiddleware(cfg))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	identify.RegisterRoutes(app, identifyService, cfg, policy, quota)
	batch.RegisterRoutes(app, jobService)
	jobs.RegisterRoutes(app, jobService)
	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app, gatherer)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
