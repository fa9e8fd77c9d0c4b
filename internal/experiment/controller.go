package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/database"
	"github.com/vk/expgridgo/internal/entity"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// pollInterval is how often running jobs are re-queried.
const pollInterval = 2 * time.Second

// dbTrials and dbBackoff bound the wait for database shards to answer.
const (
	dbTrials  = 10
	dbBackoff = 2 * time.Second
)

// Controller converts entities into steps, submits them through the
// launcher, and tracks them in a JobManager.
type Controller struct {
	launcher launcher.Launcher
	jm       *JobManager
}

// NewController builds a controller on the given launcher backend.
func NewController(l launcher.Launcher) *Controller {
	return &Controller{launcher: l, jm: NewJobManager(l)}
}

// JobManager exposes the job table for status queries.
func (c *Controller) JobManager() *JobManager { return c.jm }

// StartOrchestrator launches the database shards and, once they are
// reachable, forms and verifies the cluster.
func (c *Controller) StartOrchestrator(ctx context.Context, orc *database.Orchestrator) error {
	logger := ctxlog.FromContext(ctx)

	if orc.Batch {
		step := c.orchestratorBatchStep(orc)
		id, err := c.launcher.Run(ctx, step)
		if err != nil {
			return fmt.Errorf("failed to launch orchestrator: %w", err)
		}
		c.jm.Add(step.Name, orc.EntityName(), id)
		logger.Info("Orchestrator submitted as batch workload.", "shards", len(orc.Nodes))
	} else {
		for _, node := range orc.Nodes {
			step := launcher.NewStep(node.Name, orc.Path, node.RunSettings)
			id, err := c.launcher.Run(ctx, step)
			if err != nil {
				return fmt.Errorf("failed to launch database shard %q: %w", node.Name, err)
			}
			c.jm.Add(step.Name, node.Name, id)
		}
		logger.Info("Orchestrator shards launched.", "shards", len(orc.Nodes))
	}

	if !orc.HostsKnown() {
		// Without shard addresses there is nothing to bootstrap from here;
		// a batch orchestrator with unpinned hosts connects clients by
		// other means.
		logger.Warn("Orchestrator hosts unknown, skipping database health check.")
		return nil
	}

	addrs := orc.Addresses()
	if orc.IsClustered() {
		for _, addr := range addrs {
			if err := database.CheckDatabase(ctx, addr, dbTrials, dbBackoff); err != nil {
				return err
			}
		}
		if err := database.CreateCluster(ctx, addrs); err != nil {
			return err
		}
		return database.CheckCluster(ctx, addrs, dbTrials, dbBackoff)
	}
	return database.CheckDatabase(ctx, addrs[0], dbTrials, dbBackoff)
}

// orchestratorBatchStep renders all shards into one batch submission.
func (c *Controller) orchestratorBatchStep(orc *database.Orchestrator) *launcher.Step {
	argv := make([][]string, len(orc.Nodes))
	for i, node := range orc.Nodes {
		argv[i] = node.RunSettings.Argv()
	}
	return launcher.NewBatchStep(orc.EntityName(), orc.Path, orc.BatchSettings, argv...)
}

// StartModel submits a single model.
func (c *Controller) StartModel(ctx context.Context, m *entity.Model) error {
	if m.RunSettings == nil {
		return fmt.Errorf("model %q has no run settings", m.Name)
	}
	step := launcher.NewStep(m.Name, m.Path, m.RunSettings)
	id, err := c.launcher.Run(ctx, step)
	if err != nil {
		return fmt.Errorf("failed to launch model %q: %w", m.Name, err)
	}
	c.jm.Add(step.Name, m.Name, id)
	return nil
}

// StartEnsemble submits an ensemble: as one batch workload when it carries
// batch settings, otherwise one interactive step per member.
func (c *Controller) StartEnsemble(ctx context.Context, e *entity.Ensemble) error {
	if e.BatchSettings != nil {
		argv := make([][]string, len(e.Models))
		for i, m := range e.Models {
			if m.RunSettings == nil {
				return fmt.Errorf("model %q in ensemble %q has no run settings", m.Name, e.Name)
			}
			argv[i] = m.RunSettings.Argv()
		}
		step := launcher.NewBatchStep(e.Name, e.Path, e.BatchSettings, argv...)
		id, err := c.launcher.Run(ctx, step)
		if err != nil {
			return fmt.Errorf("failed to launch ensemble %q: %w", e.Name, err)
		}
		c.jm.Add(step.Name, e.Name, id)
		return nil
	}

	for _, m := range e.Models {
		if err := c.StartModel(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every submitted job reaches a terminal status.
func (c *Controller) Wait(ctx context.Context) error {
	return c.jm.Wait(ctx, pollInterval)
}

// Stop cancels everything the controller has submitted.
func (c *Controller) Stop(ctx context.Context) error {
	return c.jm.StopAll(ctx)
}

// Statuses polls once and returns the statuses for the named entities.
func (c *Controller) Statuses(ctx context.Context, entityNames ...string) []status.Status {
	c.jm.Poll(ctx)
	return c.jm.Statuses(entityNames...)
}
