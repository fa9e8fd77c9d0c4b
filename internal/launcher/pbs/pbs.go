// Package pbs implements the PBS Pro launcher backend: qsub submission,
// qstat status polling, and qdel cancellation.
package pbs

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/shell"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// Launcher drives PBS Pro through its user commands. Interactive steps run
// on an existing allocation through aprun or mpirun and are tracked as
// tasks.
type Launcher struct {
	tasks *launcher.TaskManager
}

// New creates a PBS launcher.
func New() *Launcher {
	return &Launcher{tasks: launcher.NewTaskManager()}
}

// Name implements launcher.Launcher.
func (l *Launcher) Name() string { return "pbs" }

// Run implements launcher.Launcher.
func (l *Launcher) Run(ctx context.Context, step *launcher.Step) (string, error) {
	if !step.IsBatch() {
		return l.tasks.Start(ctx, step)
	}

	script, err := step.WriteScript()
	if err != nil {
		return "", err
	}
	result, err := shell.Run(ctx, step.Cwd, "qsub",
		"-N", step.Name,
		"-o", step.OutFile,
		"-e", step.ErrFile,
		script,
	)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: qsub failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}

	id := strings.TrimSpace(result.Stdout)
	if id == "" {
		return "", fmt.Errorf("%w: qsub returned no job id", launcher.ErrLauncher)
	}
	ctxlog.FromContext(ctx).Debug("Batch step submitted.", "step", step.Name, "jobID", id)
	return id, nil
}

// Stop implements launcher.Launcher.
func (l *Launcher) Stop(ctx context.Context, id string) error {
	if launcher.IsTaskID(id) {
		return l.tasks.Stop(ctx, id)
	}
	result, err := shell.Run(ctx, "", "qdel", id)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: qdel %s failed: %s", launcher.ErrLauncher, id, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Status implements launcher.Launcher. Finished jobs are queried from PBS
// job history (qstat -x).
func (l *Launcher) Status(ctx context.Context, id string) (status.Status, error) {
	if launcher.IsTaskID(id) {
		return l.tasks.Status(ctx, id)
	}
	result, err := shell.Run(ctx, "", "qstat", "-xf", id)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: qstat failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}
	return parseQstat(result.Stdout)
}

var _ launcher.Launcher = (*Launcher)(nil)
