package experiment

import (
	"context"
	"sync"
	"time"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// Job records one submitted step and its last observed status.
type Job struct {
	// Name is the step name as known to the launcher.
	Name string
	// Entity is the name of the entity the step belongs to. Ensemble
	// member jobs carry the member name; their ensemble is tracked
	// separately by the controller.
	Entity string
	// ID is the launcher's opaque step id.
	ID     string
	Status status.Status
}

// JobManager tracks submitted jobs and refreshes their statuses through the
// launcher. All methods are safe for concurrent use; the controller polls
// from a background goroutine while callers read statuses.
type JobManager struct {
	mu       sync.RWMutex
	launcher launcher.Launcher
	jobs     []*Job
}

// NewJobManager creates an empty job table bound to a launcher.
func NewJobManager(l launcher.Launcher) *JobManager {
	return &JobManager{launcher: l}
}

// Add records a submitted step.
func (jm *JobManager) Add(stepName, entityName, id string) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{Name: stepName, Entity: entityName, ID: id, Status: status.New}
	jm.jobs = append(jm.jobs, job)
	return job
}

// Poll refreshes the status of every non-terminal job once.
func (jm *JobManager) Poll(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	jm.mu.RLock()
	jobs := make([]*Job, len(jm.jobs))
	copy(jobs, jm.jobs)
	jm.mu.RUnlock()

	for _, job := range jobs {
		jm.mu.RLock()
		done := status.Terminal(job.Status)
		jm.mu.RUnlock()
		if done {
			continue
		}

		s, err := jm.launcher.Status(ctx, job.ID)
		if err != nil {
			logger.Warn("Failed to poll job status.", "job", job.Name, "error", err)
			continue
		}
		jm.mu.Lock()
		if job.Status != s {
			logger.Debug("Job status changed.", "job", job.Name, "from", job.Status, "to", s)
			job.Status = s
		}
		jm.mu.Unlock()
	}
}

// Wait polls until every job reaches a terminal status or the context is
// cancelled.
func (jm *JobManager) Wait(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		jm.Poll(ctx)
		if jm.allTerminal() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (jm *JobManager) allTerminal() bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	for _, job := range jm.jobs {
		if !status.Terminal(job.Status) {
			return false
		}
	}
	return true
}

// Statuses returns the recorded status of every job for the named entities,
// in submission order. With no names it covers every tracked job.
func (jm *JobManager) Statuses(entityNames ...string) []status.Status {
	wanted := make(map[string]bool, len(entityNames))
	for _, n := range entityNames {
		wanted[n] = true
	}

	jm.mu.RLock()
	defer jm.mu.RUnlock()

	var statuses []status.Status
	for _, job := range jm.jobs {
		if len(wanted) == 0 || wanted[job.Entity] {
			statuses = append(statuses, job.Status)
		}
	}
	return statuses
}

// Jobs returns a snapshot of all tracked jobs.
func (jm *JobManager) Jobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, len(jm.jobs))
	for i, job := range jm.jobs {
		jobs[i] = *job
	}
	return jobs
}

// StopAll cancels every non-terminal job and marks it cancelled.
func (jm *JobManager) StopAll(ctx context.Context) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	var firstErr error
	for _, job := range jm.jobs {
		if status.Terminal(job.Status) {
			continue
		}
		if err := jm.launcher.Stop(ctx, job.ID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		job.Status = status.Cancelled
	}
	return firstErr
}
