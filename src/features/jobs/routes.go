package jobs

import "github.com/gofiber/fiber/v2"

// RegisterRoutes wires the job endpoints.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	app.Get("/jobs", handler.HandleListJobs)
	app.Get("/jobs/:id", handler.HandleJobStatus)
	app.Get("/jobs/:id/logs", handler.HandleJobLogs)
	app.Post("/jobs/:id/cancel", handler.HandleCancelJob)
}
