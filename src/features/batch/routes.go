package batch

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/jobs"
)

// RegisterRoutes wires the batch endpoints.
func RegisterRoutes(app *fiber.App, jobSvc jobs.JobService) {
	handler := NewHandler(jobSvc)
	app.Post("/batch/identify", handler.StartDirectory)
}
