package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/lunefort/tuneid/src/features/jobs"
)

// JobTypeDirectory is the job type registered for directory runs.
const JobTypeDirectory = "batch_identify"

// DirectoryIdentifyTask implements jobs.Task for directory identification.
type DirectoryIdentifyTask struct {
	service *Service
}

// NewDirectoryIdentifyTask creates a task bound to the batch service.
func NewDirectoryIdentifyTask(service *Service) *DirectoryIdentifyTask {
	return &DirectoryIdentifyTask{service: service}
}

// MetadataKeys returns the required metadata keys for a directory job.
func (t *DirectoryIdentifyTask) MetadataKeys() []string {
	return []string{"path"}
}

// Execute runs the directory identification.
func (t *DirectoryIdentifyTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	path := job.Metadata["path"].(string)
	userID, _ := job.Metadata["user_id"].(string)
	user := t.service.UserByID(userID)

	stats, results, err := t.service.RunDirectory(ctx, path, user, progressUpdater)
	meta := map[string]any{"stats": stats, "results": results}
	if err != nil {
		return meta, fmt.Errorf("batch identification failed: %w", err)
	}
	if ctx.Err() != nil {
		return meta, ctx.Err()
	}

	total := stats.Identified + stats.NoMatch + stats.Errors
	msg := fmt.Sprintf("Batch finished. Processed %d files (%d identified, %d without a match, %d errors).",
		total, stats.Identified, stats.NoMatch, stats.Errors)
	job.Logger.Info(msg)
	meta["msg"] = msg

	if total > 0 && stats.Identified == 0 && stats.NoMatch == 0 {
		return meta, errors.New("no files were successfully processed")
	}
	return meta, nil
}

// Cleanup does nothing for directory runs.
func (t *DirectoryIdentifyTask) Cleanup(job *jobs.Job) error {
	return nil
}
