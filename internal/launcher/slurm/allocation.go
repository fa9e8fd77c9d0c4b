package slurm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/shell"
)

// AllocationRequest describes a compute allocation to obtain via salloc.
type AllocationRequest struct {
	Nodes     int
	Time      string
	Account   string
	Partition string
	// Options carries additional salloc flags; an empty value marks a bare
	// flag.
	Options map[string]string
}

// grantedRe matches salloc's grant message on stderr.
var grantedRe = regexp.MustCompile(`Granted job allocation (\d+)`)

// GetAllocation obtains a compute allocation without starting a shell and
// returns its job id. Entities launched interactively afterwards land on
// this allocation.
func GetAllocation(ctx context.Context, req AllocationRequest) (string, error) {
	args := []string{"--no-shell", "-N", fmt.Sprintf("%d", req.Nodes)}
	if req.Time != "" {
		args = append(args, "-t", req.Time)
	}
	if req.Account != "" {
		args = append(args, "-A", req.Account)
	}
	if req.Partition != "" {
		args = append(args, "-p", req.Partition)
	}
	for k, v := range req.Options {
		prefix := "--"
		if len(k) == 1 {
			prefix = "-"
		}
		args = append(args, prefix+k)
		if v != "" {
			args = append(args, v)
		}
	}

	result, err := shell.Run(ctx, "", "salloc", args...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: salloc failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}

	id, err := parseSallocOutput(result.Stderr)
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Info("Allocation granted.", "jobID", id, "nodes", req.Nodes)
	return id, nil
}

// parseSallocOutput extracts the allocation id from salloc's stderr.
func parseSallocOutput(stderr string) (string, error) {
	if m := grantedRe.FindStringSubmatch(stderr); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: could not find allocation id in salloc output", launcher.ErrLauncher)
}

// ReleaseAllocation returns the allocation to the scheduler.
func ReleaseAllocation(ctx context.Context, id string) error {
	result, err := shell.Run(ctx, "", "scancel", id)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: failed to release allocation %s: %s",
			launcher.ErrLauncher, id, strings.TrimSpace(result.Stderr))
	}
	return nil
}
