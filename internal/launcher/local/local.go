// Package local implements the launcher backend that runs steps directly
// on the current machine, without a workload manager. It backs the light
// test suite and laptop-scale experiments.
package local

import (
	"context"
	"fmt"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// Launcher runs steps as local child processes.
type Launcher struct {
	tasks *launcher.TaskManager
}

// New creates a local launcher.
func New() *Launcher {
	return &Launcher{tasks: launcher.NewTaskManager()}
}

// Name implements launcher.Launcher.
func (l *Launcher) Name() string { return "local" }

// Run implements launcher.Launcher. Batch steps are rejected: there is no
// queue to submit them to.
func (l *Launcher) Run(ctx context.Context, step *launcher.Step) (string, error) {
	if step.IsBatch() {
		return "", fmt.Errorf("%w: local launcher cannot submit batch steps", launcher.ErrLauncher)
	}
	return l.tasks.Start(ctx, step)
}

// Stop implements launcher.Launcher.
func (l *Launcher) Stop(ctx context.Context, id string) error {
	return l.tasks.Stop(ctx, id)
}

// Status implements launcher.Launcher.
func (l *Launcher) Status(ctx context.Context, id string) (status.Status, error) {
	return l.tasks.Status(ctx, id)
}

var _ launcher.Launcher = (*Launcher)(nil)
