// Package launcher defines the interface the experiment controller drives
// to submit, monitor, and stop steps, along with the step model shared by
// all workload manager backends.
package launcher

import (
	"context"
	"errors"

	"github.com/vk/expgridgo/internal/launcher/status"
)

// ErrLauncher wraps failures of the underlying workload manager commands.
var ErrLauncher = errors.New("launcher error")

// Launcher submits steps to a workload manager (or the local machine) and
// reports on them. Implementations return opaque step ids from Run that the
// other methods accept.
type Launcher interface {
	// Name returns the launcher's backend name (slurm, cobalt, pbs, local).
	Name() string
	// Run submits the step and returns its id.
	Run(ctx context.Context, step *Step) (string, error)
	// Stop cancels the step with the given id.
	Stop(ctx context.Context, id string) error
	// Status reports the current normalized status of the step.
	Status(ctx context.Context, id string) (status.Status, error)
}
