package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// taskIDPrefix marks step ids owned by a TaskManager rather than a
// workload manager queue.
const taskIDPrefix = "task-"

// IsTaskID reports whether a step id belongs to a TaskManager.
func IsTaskID(id string) bool { return strings.HasPrefix(id, taskIDPrefix) }

// TaskManager starts and tracks unmanaged processes. The local launcher is
// built on it directly; the workload manager launchers use it for
// interactive steps that run inside an existing allocation.
type TaskManager struct {
	mu    sync.Mutex
	next  int
	tasks map[string]*task
}

type task struct {
	cmd      *exec.Cmd
	status   status.Status
	exitCode int
}

// NewTaskManager creates an empty task table.
func NewTaskManager() *TaskManager {
	return &TaskManager{tasks: map[string]*task{}}
}

// Start spawns the step's process with output redirected to the step files
// and begins tracking it. The returned id is stable for the life of the
// manager.
func (tm *TaskManager) Start(ctx context.Context, step *Step) (string, error) {
	logger := ctxlog.FromContext(ctx)

	out, err := os.Create(step.OutFile)
	if err != nil {
		return "", fmt.Errorf("failed to open step output file: %w", err)
	}
	errf, err := os.Create(step.ErrFile)
	if err != nil {
		out.Close()
		return "", fmt.Errorf("failed to open step error file: %w", err)
	}

	cmd := exec.Command(step.Argv[0], step.Argv[1:]...)
	cmd.Dir = step.Cwd
	cmd.Stdout = out
	cmd.Stderr = errf
	cmd.Env = os.Environ()
	for k, v := range step.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	if err := cmd.Start(); err != nil {
		out.Close()
		errf.Close()
		return "", fmt.Errorf("%w: failed to start %q: %v", ErrLauncher, step.Argv[0], err)
	}

	tm.mu.Lock()
	tm.next++
	id := fmt.Sprintf("%s%d-%d", taskIDPrefix, tm.next, cmd.Process.Pid)
	t := &task{cmd: cmd, status: status.Running}
	tm.tasks[id] = t
	tm.mu.Unlock()

	logger.Debug("Task started.", "id", id, "step", step.Name, "pid", cmd.Process.Pid)

	go func() {
		defer out.Close()
		defer errf.Close()
		waitErr := cmd.Wait()

		tm.mu.Lock()
		defer tm.mu.Unlock()
		if t.status == status.Cancelled {
			return
		}
		if waitErr != nil {
			t.status = status.Failed
			t.exitCode = cmd.ProcessState.ExitCode()
			return
		}
		t.status = status.Completed
	}()

	return id, nil
}

// Stop kills the task's process and marks it cancelled.
func (tm *TaskManager) Stop(ctx context.Context, id string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t, ok := tm.tasks[id]
	if !ok {
		return fmt.Errorf("%w: unknown task %q", ErrLauncher, id)
	}
	if status.Terminal(t.status) {
		return nil
	}
	t.status = status.Cancelled
	if err := t.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("%w: failed to kill task %q: %v", ErrLauncher, id, err)
	}
	ctxlog.FromContext(ctx).Debug("Task cancelled.", "id", id)
	return nil
}

// Status reports the task's current status.
func (tm *TaskManager) Status(ctx context.Context, id string) (status.Status, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t, ok := tm.tasks[id]
	if !ok {
		return "", fmt.Errorf("%w: unknown task %q", ErrLauncher, id)
	}
	return t.status, nil
}
