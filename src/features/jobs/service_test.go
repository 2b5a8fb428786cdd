package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunefort/tuneid/src/features/config"
)

type recordedTask struct {
	keys    []string
	execute func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error)
}

func (t *recordedTask) MetadataKeys() []string { return t.keys }

func (t *recordedTask) Execute(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
	if t.execute == nil {
		return nil, nil
	}
	return t.execute(ctx, job, progress)
}

func (t *recordedTask) Cleanup(job *Job) error { return nil }

func waitForStatus(t *testing.T, svc *Service, jobID string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := svc.GetJob(jobID); ok && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := svc.GetJob(jobID)
	t.Fatalf("job never reached %q, last state: %+v", want, job)
	return nil
}

func newJobsService() *Service {
	return NewService(&config.Jobs{Log: false}, nil)
}

func TestStartJob_RunsToCompletion(t *testing.T) {
	svc := newJobsService()
	done := make(chan struct{})
	svc.RegisterHandler("noop", NewBaseTaskHandler(&recordedTask{
		execute: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			close(done)
			return map[string]any{"count": 3}, nil
		},
	}))

	jobID, err := svc.StartJob("noop", "test job", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task never executed")
	}

	job := waitForStatus(t, svc, jobID, JobStatusCompleted)
	if job.Progress != 100 {
		t.Errorf("completed jobs report 100%%, got %d", job.Progress)
	}
	if job.Metadata["count"] != 3 {
		t.Errorf("task stats must be merged into metadata, got %+v", job.Metadata)
	}
}

func TestStartJob_FailedTask(t *testing.T) {
	svc := newJobsService()
	svc.RegisterHandler("failing", NewBaseTaskHandler(&recordedTask{
		execute: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			return nil, errors.New("task exploded")
		},
	}))

	jobID, err := svc.StartJob("failing", "doomed", nil)
	if err != nil {
		t.Fatal(err)
	}

	job := waitForStatus(t, svc, jobID, JobStatusFailed)
	if job.Message != "task exploded" {
		t.Errorf("expected the task error as message, got %q", job.Message)
	}
}

func TestStartJob_MissingMetadataFails(t *testing.T) {
	svc := newJobsService()
	svc.RegisterHandler("strict", NewBaseTaskHandler(&recordedTask{keys: []string{"path"}}))

	jobID, err := svc.StartJob("strict", "no path", nil)
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, svc, jobID, JobStatusFailed)
}

func TestStartJob_SameTypeQueues(t *testing.T) {
	svc := newJobsService()
	release := make(chan struct{})
	svc.RegisterHandler("serial", NewBaseTaskHandler(&recordedTask{
		execute: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			<-release
			return nil, nil
		},
	}))

	firstID, err := svc.StartJob("serial", "first", nil)
	if err != nil {
		t.Fatal(err)
	}
	secondID, err := svc.StartJob("serial", "second", nil)
	if err != nil {
		t.Fatal(err)
	}

	if job, _ := svc.GetJob(secondID); job.Status != JobStatusPending {
		t.Errorf("a second job of the same type must queue, got %q", job.Status)
	}

	close(release)
	waitForStatus(t, svc, firstID, JobStatusCompleted)
	waitForStatus(t, svc, secondID, JobStatusCompleted)
}

func TestCancelJob(t *testing.T) {
	svc := newJobsService()
	started := make(chan struct{})
	svc.RegisterHandler("cancellable", NewBaseTaskHandler(&recordedTask{
		execute: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	jobID, err := svc.StartJob("cancellable", "long runner", nil)
	if err != nil {
		t.Fatal(err)
	}
	<-started

	if err := svc.CancelJob(jobID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	waitForStatus(t, svc, jobID, JobStatusCancelled)
}

func TestCancelJob_UnknownID(t *testing.T) {
	if err := newJobsService().CancelJob("nope"); err == nil {
		t.Error("expected an error for an unknown job")
	}
}

func TestCleanupOldJobs(t *testing.T) {
	svc := newJobsService()
	svc.RegisterHandler("noop", NewBaseTaskHandler(&recordedTask{}))

	jobID, err := svc.StartJob("noop", "short lived", nil)
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, svc, jobID, JobStatusCompleted)

	svc.CleanupOldJobs(0)
	if _, ok := svc.GetJob(jobID); ok {
		t.Error("terminal jobs past the age limit must be removed")
	}
}
