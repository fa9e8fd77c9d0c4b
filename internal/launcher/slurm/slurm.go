// Package slurm implements the Slurm launcher backend: sbatch submission,
// sacct status polling, scancel, salloc allocation management, and sinfo
// partition validation.
package slurm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/shell"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// Launcher drives Slurm through its user commands. Interactive steps are
// spawned directly (their run settings already carry srun) and tracked as
// tasks; batch steps go through sbatch and are tracked by job id.
type Launcher struct {
	tasks *launcher.TaskManager
}

// New creates a Slurm launcher.
func New() *Launcher {
	return &Launcher{tasks: launcher.NewTaskManager()}
}

// Name implements launcher.Launcher.
func (l *Launcher) Name() string { return "slurm" }

// Run implements launcher.Launcher.
func (l *Launcher) Run(ctx context.Context, step *launcher.Step) (string, error) {
	if !step.IsBatch() {
		return l.tasks.Start(ctx, step)
	}

	script, err := step.WriteScript()
	if err != nil {
		return "", err
	}
	result, err := shell.Run(ctx, step.Cwd, "sbatch",
		"--parsable",
		"--job-name", step.Name,
		"--output", step.OutFile,
		"--error", step.ErrFile,
		script,
	)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: sbatch failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}

	// With --parsable the job id is the first token, optionally followed by
	// ";clustername" on federated systems.
	id := strings.TrimSpace(result.Stdout)
	if i := strings.IndexByte(id, ';'); i >= 0 {
		id = id[:i]
	}
	if id == "" {
		return "", fmt.Errorf("%w: sbatch returned no job id", launcher.ErrLauncher)
	}
	ctxlog.FromContext(ctx).Debug("Batch step submitted.", "step", step.Name, "jobID", id)
	return id, nil
}

// Stop implements launcher.Launcher.
func (l *Launcher) Stop(ctx context.Context, id string) error {
	if launcher.IsTaskID(id) {
		return l.tasks.Stop(ctx, id)
	}
	result, err := shell.Run(ctx, "", "scancel", id)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: scancel %s failed: %s", launcher.ErrLauncher, id, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Status implements launcher.Launcher.
func (l *Launcher) Status(ctx context.Context, id string) (status.Status, error) {
	if launcher.IsTaskID(id) {
		return l.tasks.Status(ctx, id)
	}
	result, err := shell.Run(ctx, "", "sacct", "-j", id, "--brief", "--parsable2", "--noheader")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: sacct failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}
	return parseSacct(result.Stdout, id)
}

var _ launcher.Launcher = (*Launcher)(nil)
