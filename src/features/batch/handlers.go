package batch

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/identify"
	"github.com/lunefort/tuneid/src/features/jobs"
)

type Handler struct {
	jobs jobs.JobService
}

func NewHandler(jobSvc jobs.JobService) *Handler {
	return &Handler{jobs: jobSvc}
}

type startRequest struct {
	Path string `json:"path"`
}

// StartDirectory queues a batch job for the given directory and returns
// the job ID. Progress and results are read from the jobs API.
func (h *Handler) StartDirectory(c *fiber.Ctx) error {
	var body startRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}
	if info, err := os.Stat(body.Path); err != nil || !info.IsDir() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is not a readable directory"})
	}

	user := identify.CallerFromContext(c)
	jobID, err := h.jobs.StartJob(JobTypeDirectory, "Batch identification", map[string]any{
		"path":    body.Path,
		"user_id": user.UserID,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": jobID})
}
