// Package cobalt implements the Cobalt launcher backend used on ALCF
// systems: qsub submission, qstat polling, and qdel cancellation.
package cobalt

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/shell"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// Launcher drives Cobalt through its user commands. Cobalt shares command
// names with PBS but not their syntax or output.
type Launcher struct {
	tasks *launcher.TaskManager
}

// New creates a Cobalt launcher.
func New() *Launcher {
	return &Launcher{tasks: launcher.NewTaskManager()}
}

// Name implements launcher.Launcher.
func (l *Launcher) Name() string { return "cobalt" }

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
		"--jobname", step.Name,
		"-o", step.OutFile,
		"-e", step.ErrFile,
		"--mode", "script",
		script,
	)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: qsub failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}

	// Cobalt prints the numeric job id as the last line of stdout.
	lines := strings.Fields(strings.TrimSpace(result.Stdout))
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: qsub returned no job id", launcher.ErrLauncher)
	}
	id := lines[len(lines)-1]
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

// Status implements launcher.Launcher. A job Cobalt no longer lists has
// left the queue and is reported completed.
func (l *Launcher) Status(ctx context.Context, id string) (status.Status, error) {
	if launcher.IsTaskID(id) {
		return l.tasks.Status(ctx, id)
	}
	result, err := shell.Run(ctx, "", "qstat", "--header", "State", id)
	if err != nil {
		return "", err
	}
	return parseQstat(result.Stdout)
}

// parseQstat normalizes `qstat --header State <id>` output: a single state
// word after the header, or nothing when the job has drained.
func parseQstat(out string) (status.Status, error) {
	var state string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "State") || strings.HasPrefix(line, "=") {
			continue
		}
		state = strings.ToLower(line)
	}

	switch state {
	case "":
		return status.Completed, nil
	case "running", "exiting":
		return status.Running, nil
	case "queued", "starting", "hold", "user_hold", "dep_hold":
		return status.Paused, nil
	case "killing":
		return status.Cancelled, nil
	}
	return "", fmt.Errorf("%w: unknown cobalt state %q", launcher.ErrLauncher, state)
}

var _ launcher.Launcher = (*Launcher)(nil)
